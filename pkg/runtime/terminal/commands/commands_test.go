package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/de-tools/service-map/pkg/config"
	"github.com/de-tools/service-map/pkg/models/api"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/runtime/terminal/export"
	"github.com/de-tools/service-map/pkg/services/discovery"
	"github.com/de-tools/service-map/pkg/store/blob"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/de-tools/service-map/pkg/store/memory"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ruleFile = `# prod hosts
add assetgroup prod
assetgroup matches prod link service Widgets
host matches host1 link assetgroup prod
bogus rule line
`

type fakeRuntime struct {
	settings *config.Settings
	store    *memory.Store
	blobs    *blob.FS
	sources  []discovery.Source
}

func (f *fakeRuntime) Settings() *config.Settings                  { return f.settings }
func (f *fakeRuntime) Store(context.Context) (entity.Store, error) { return f.store, nil }
func (f *fakeRuntime) Blobs(context.Context) (blob.Store, error)   { return f.blobs, nil }
func (f *fakeRuntime) Sources(context.Context, []string) ([]discovery.Source, error) {
	return f.sources, nil
}

type fixture struct {
	ctx      context.Context
	dir      string
	rt       *fakeRuntime
	out      *bytes.Buffer
	reporter *export.Reporter
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	return &fixture{
		ctx: context.Background(),
		dir: dir,
		rt: &fakeRuntime{
			settings: &config.Settings{
				Environment: "test",
				Store:       config.StoreSettings{Backend: "memory"},
				Rules:       config.BlobLocation{Bucket: "rules", Key: config.DefaultRulesKey},
				Snapshot:    config.BlobLocation{Bucket: "public", Key: config.DefaultSnapshotKey},
				Aggregation: config.AggregationSettings{Interval: time.Hour, BatchSize: 10},
			},
			store: memory.NewStore(),
			blobs: blob.NewFS(dir),
		},
		out:      out,
		reporter: export.NewReporter(out),
	}
}

func (f *fixture) writeFile(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (f *fixture) execute(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(f.out)
	cmd.SetErr(f.out)
	return cmd.ExecuteContext(f.ctx)
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	require.NoError(t, f.rt.store.Assets().Put(f.ctx, domain.Asset{ID: "a-1", AssetIdentifier: "host1", AssetType: domain.AssetTypeHostname}))
	require.NoError(t, f.rt.store.Services().Put(f.ctx, domain.Service{ID: "s-1", Name: "Widgets", HighestRiskImpact: "HIGH"}))
}

func TestLintCmd(t *testing.T) {
	f := setupFixture(t)
	path := f.writeFile(t, "rules.txt", ruleFile)

	require.NoError(t, f.execute(NewLintCmd(f.reporter), "--file", path))
	assert.Contains(t, f.out.String(), string(domain.RuleAssetGroupAdd))
	assert.Contains(t, f.out.String(), "bogus")

	err := f.execute(NewLintCmd(f.reporter), "--file", path, "--strict")
	assert.ErrorContains(t, err, "1 unparsed lines")
}

func TestIngestCmd_FromFile(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	path := f.writeFile(t, "rules.txt", ruleFile)

	require.NoError(t, f.execute(NewIngestCmd(f.rt, f.reporter), "--file", path))

	asset, err := f.rt.store.Assets().Get(f.ctx, "a-1")
	require.NoError(t, err)
	assert.NotEmpty(t, asset.AssetGroupID)
	assert.Contains(t, f.out.String(), "applied: 3")
}

func TestIngestCmd_FromBucketDefaults(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	f.writeFile(t, filepath.Join("rules", config.DefaultRulesKey), ruleFile)

	require.NoError(t, f.execute(NewIngestCmd(f.rt, f.reporter)))
	assert.Contains(t, f.out.String(), "rules/"+config.DefaultRulesKey)
}

func TestAggregateCmd_Publishes(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)
	require.NoError(t, f.rt.store.Indicators().Put(f.ctx, domain.Indicator{ID: "i-1", AssetID: "a-1", LikelihoodIndicator: "high"}))

	require.NoError(t, f.execute(NewAggregateCmd(f.rt, f.reporter), "--publish"))
	assert.Contains(t, f.out.String(), "assets updated: 1")

	body, err := f.rt.blobs.Get(f.ctx, "public", config.DefaultSnapshotKey)
	require.NoError(t, err)
	var snap api.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Len(t, snap.Services, 1)
}

func TestSnapshotCmd(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)

	require.NoError(t, f.execute(NewSnapshotCmd(f.rt)))
	assert.Contains(t, f.out.String(), fmt.Sprintf("Published 1 services to public/%s", config.DefaultSnapshotKey))
}

func TestImportServicesCmd(t *testing.T) {
	f := setupFixture(t)
	path := f.writeFile(t, "rra.yaml", "services:\n  - name: Gadgets\n    highest_risk_impact: LOW\n")

	require.NoError(t, f.execute(NewImportServicesCmd(f.rt, f.reporter), "--file", path))

	services, err := f.rt.store.Services().Scan(f.ctx, entity.Equals(entity.AttrName, "Gadgets"))
	require.NoError(t, err)
	assert.Len(t, services, 1)
	assert.Contains(t, f.out.String(), "created: 1")
}

type staticSource struct {
	instances []discovery.Instance
}

func (staticSource) Type() string { return discovery.SourceEC2 }

func (s staticSource) Discover(context.Context) ([]discovery.Instance, error) {
	return s.instances, nil
}

func TestDiscoverCmd(t *testing.T) {
	f := setupFixture(t)
	f.rt.sources = []discovery.Source{staticSource{instances: []discovery.Instance{
		{Identifier: "ec2-1.compute.amazonaws.com", AssetType: domain.AssetTypeHostname},
	}}}

	require.NoError(t, f.execute(NewDiscoverCmd(f.rt, f.reporter), "--sources", "ec2"))

	assets, err := f.rt.store.Assets().Scan(f.ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
	assert.Contains(t, f.out.String(), "discovered: 1")
}

func TestInitStoreCmd_NoProvisioning(t *testing.T) {
	f := setupFixture(t)

	require.NoError(t, f.execute(NewInitStoreCmd(f.rt)))
	assert.Contains(t, f.out.String(), "Backend memory needs no provisioning")
}
