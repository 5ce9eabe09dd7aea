package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range legacyEnv {
		for _, name := range envs {
			t.Setenv(name, "")
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service-map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Equal(t, "dynamodb", cfg.Store.Backend)
	assert.Equal(t, 10*time.Second, cfg.Store.CallTimeout)
	assert.Equal(t, 5, cfg.Store.MaxAttempts)
	assert.True(t, cfg.Store.ConsistentReads)
	assert.Equal(t, time.Hour, cfg.Aggregation.Interval)
	assert.Equal(t, 100, cfg.Aggregation.BatchSize)
	assert.Equal(t, DefaultSnapshotKey, cfg.Snapshot.Key)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// Given
	clearEnv(t)
	path := writeConfig(t, `environment: prod
store:
  backend: duckdb
  duckdb_path: /tmp/map.db
  call_timeout: 3s
aggregation:
  interval: 15m
  batch_size: 25
snapshot:
  bucket: reports`)

	// When
	cfg, err := Load(path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "duckdb", cfg.Store.Backend)
	assert.Equal(t, "/tmp/map.db", cfg.Store.DuckDBPath)
	assert.Equal(t, 3*time.Second, cfg.Store.CallTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Aggregation.Interval)
	assert.Equal(t, 25, cfg.Aggregation.BatchSize)
	assert.Equal(t, "reports", cfg.Snapshot.Bucket)
	assert.Equal(t, DefaultSnapshotKey, cfg.Snapshot.Key)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "environment: prod\n")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("SNAPSHOT_BUCKET", "risk-reports")
	t.Setenv("SERVICEMAP_STORE_BACKEND", "memory")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "risk-reports", cfg.Snapshot.Bucket)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown backend", content: "store:\n  backend: cassandra\n"},
		{name: "zero batch size", content: "aggregation:\n  batch_size: 0\n"},
		{name: "unknown log level", content: "log:\n  level: verbose\n"},
		{name: "malformed yaml", content: "store: [backend\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			_, err := Load(writeConfig(t, tt.content))

			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestSettings_Tables(t *testing.T) {
	cfg := &Settings{Environment: "prod"}

	tables := cfg.Tables()

	assert.Equal(t, map[entity.Kind]string{
		entity.KindAsset:      "prod-Assets",
		entity.KindAssetGroup: "prod-AssetGroups",
		entity.KindService:    "prod-Services",
		entity.KindIndicator:  "prod-Indicators",
		entity.KindAssetOwner: "prod-AssetOwners",
	}, tables)
}

func TestSettings_StoreKey(t *testing.T) {
	dynamo := &Settings{Environment: "prod", Store: StoreSettings{Backend: "dynamodb"}}
	duck := &Settings{Environment: "prod", Store: StoreSettings{Backend: "duckdb", DuckDBPath: "a.db"}}

	assert.Equal(t, "dynamodb:prod", dynamo.StoreKey())
	assert.Equal(t, "duckdb:a.db", duck.StoreKey())
}
