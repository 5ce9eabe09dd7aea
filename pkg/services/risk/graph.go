package risk

import (
	"context"
	"fmt"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/store/entity"
	"golang.org/x/sync/errgroup"
)

// Graph is a full read of the entity store. Relationships are resolved
// through the id back-references on groups and assets.
type Graph struct {
	Services    []domain.Service
	AssetGroups []domain.AssetGroup
	Assets      []domain.Asset
	Indicators  []domain.Indicator
}

// LoadGraph scans the four record kinds concurrently.
func LoadGraph(ctx context.Context, store entity.Store) (*Graph, error) {
	var g Graph
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		g.Services, err = store.Services().Scan(ctx)
		if err != nil {
			return fmt.Errorf("load services: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		g.AssetGroups, err = store.AssetGroups().Scan(ctx)
		if err != nil {
			return fmt.Errorf("load asset groups: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		g.Assets, err = store.Assets().Scan(ctx)
		if err != nil {
			return fmt.Errorf("load assets: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		g.Indicators, err = store.Indicators().Scan(ctx)
		if err != nil {
			return fmt.Errorf("load indicators: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (g *Graph) IndicatorsByAsset() map[string][]domain.Indicator {
	out := make(map[string][]domain.Indicator)
	for _, ind := range g.Indicators {
		out[ind.AssetID] = append(out[ind.AssetID], ind)
	}
	return out
}

func (g *Graph) AssetsByGroup() map[string][]domain.Asset {
	out := make(map[string][]domain.Asset)
	for _, a := range g.Assets {
		if a.AssetGroupID != "" {
			out[a.AssetGroupID] = append(out[a.AssetGroupID], a)
		}
	}
	return out
}

func (g *Graph) GroupsByService() map[string][]domain.AssetGroup {
	out := make(map[string][]domain.AssetGroup)
	for _, grp := range g.AssetGroups {
		if grp.ServiceID != "" {
			out[grp.ServiceID] = append(out[grp.ServiceID], grp)
		}
	}
	return out
}
