package terminal

import (
	"bytes"
	"context"
	"testing"

	"github.com/de-tools/service-map/pkg/config"
	"github.com/de-tools/service-map/pkg/store/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLI_InitStoreWithMemoryBackend(t *testing.T) {
	t.Setenv("SERVICEMAP_STORE_BACKEND", "memory")
	t.Setenv("STORE_BACKEND", "")

	var out bytes.Buffer
	cli := NewCLI(Options{Output: &out, LogOutput: &bytes.Buffer{}})

	require.NoError(t, cli.ExecuteContext(context.Background(), "init-store"))
	assert.Contains(t, out.String(), "Backend memory needs no provisioning")
}

func TestCLI_InvalidSettings(t *testing.T) {
	t.Setenv("SERVICEMAP_STORE_BACKEND", "cassandra")
	t.Setenv("STORE_BACKEND", "")

	cli := NewCLI(Options{Output: &bytes.Buffer{}, LogOutput: &bytes.Buffer{}})
	err := cli.ExecuteContext(context.Background(), "init-store")
	assert.ErrorContains(t, err, "invalid settings")
}

func TestOpenBlobs_FS(t *testing.T) {
	settings := &config.Settings{Blob: config.BlobSettings{Backend: "fs", Root: t.TempDir()}}

	blobs, err := OpenBlobs(context.Background(), settings)
	require.NoError(t, err)
	assert.IsType(t, &blob.FS{}, blobs)
}
