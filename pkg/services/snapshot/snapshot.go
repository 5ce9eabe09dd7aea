package snapshot

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/de-tools/service-map/pkg/adapters"
	"github.com/de-tools/service-map/pkg/models/api"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/services/risk"
	"github.com/de-tools/service-map/pkg/store/blob"
	"github.com/rs/zerolog"
)

const ContentType = "application/json"

// Build nests the graph as services, asset groups, assets and indicators.
// Masked services are left out. Every level is sorted so equal graphs
// produce byte-identical documents.
func Build(graph *risk.Graph) api.Snapshot {
	groups := graph.GroupsByService()
	members := graph.AssetsByGroup()
	indicators := graph.IndicatorsByAsset()

	services := make([]domain.Service, 0, len(graph.Services))
	for _, s := range graph.Services {
		if !s.Masked {
			services = append(services, s)
		}
	}
	slices.SortFunc(services, func(a, b domain.Service) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	snap := api.Snapshot{Services: make([]api.SnapshotService, 0, len(services))}
	for _, s := range services {
		snap.Services = append(snap.Services, api.SnapshotService{
			Service:     adapters.MapServiceDomainToApi(s),
			AssetGroups: buildGroups(groups[s.ID], members, indicators),
		})
	}
	return snap
}

func buildGroups(
	groups []domain.AssetGroup,
	members map[string][]domain.Asset,
	indicators map[string][]domain.Indicator,
) []api.SnapshotAssetGroup {
	groups = slices.Clone(groups)
	slices.SortFunc(groups, func(a, b domain.AssetGroup) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	out := make([]api.SnapshotAssetGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, api.SnapshotAssetGroup{
			AssetGroup: adapters.MapAssetGroupDomainToApi(g),
			Assets:     buildAssets(members[g.ID], indicators),
		})
	}
	return out
}

func buildAssets(assets []domain.Asset, indicators map[string][]domain.Indicator) []api.SnapshotAsset {
	assets = slices.Clone(assets)
	slices.SortFunc(assets, func(a, b domain.Asset) int {
		return cmp.Or(cmp.Compare(a.AssetIdentifier, b.AssetIdentifier), cmp.Compare(a.ID, b.ID))
	})

	out := make([]api.SnapshotAsset, 0, len(assets))
	for _, a := range assets {
		inds := slices.Clone(indicators[a.ID])
		slices.SortFunc(inds, func(x, y domain.Indicator) int { return cmp.Compare(x.ID, y.ID) })
		out = append(out, api.SnapshotAsset{
			Asset:      adapters.MapAssetDomainToApi(a),
			Indicators: adapters.MapIndicatorsDomainToApi(inds),
		})
	}
	return out
}

// Publisher writes the snapshot document to one fixed blob, replacing the
// previous one.
type Publisher struct {
	blobs  blob.Store
	bucket string
	key    string
}

func NewPublisher(blobs blob.Store, bucket, key string) (*Publisher, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("snapshot bucket and key are required")
	}
	return &Publisher{blobs: blobs, bucket: bucket, key: key}, nil
}

func (p *Publisher) Publish(ctx context.Context, snap api.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.blobs.Put(ctx, p.bucket, p.key, body, ContentType); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	zerolog.Ctx(ctx).Info().
		Str("bucket", p.bucket).
		Str("key", p.key).
		Int("services", len(snap.Services)).
		Int("bytes", len(body)).
		Msg("Snapshot published")
	return nil
}

// PublishGraph builds the snapshot of graph and publishes it.
func (p *Publisher) PublishGraph(ctx context.Context, graph *risk.Graph) (api.Snapshot, error) {
	snap := Build(graph)
	return snap, p.Publish(ctx, snap)
}
