package discovery

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Result struct {
	Discovered int
	Created    int
	Updated    int
}

// Controller imports discovered instances as assets, matched by
// identifier.
type Controller struct {
	store   entity.Store
	sources map[string]Source
	newID   func() string
	now     func() time.Time
}

func NewController(store entity.Store, sources ...Source) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	c := &Controller{
		store:   store,
		sources: make(map[string]Source),
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, s := range sources {
		st := s.Type()
		if _, exists := c.sources[st]; exists {
			return nil, fmt.Errorf("duplicate source for type: %s", st)
		}
		c.sources[st] = s
	}
	if len(c.sources) == 0 {
		return nil, fmt.Errorf("at least one source must be provided")
	}
	return c, nil
}

func (c *Controller) SupportedSources() []string {
	return slices.Sorted(maps.Keys(c.sources))
}

// Discover runs the named sources, or all of them when none are named.
func (c *Controller) Discover(ctx context.Context, sourceTypes ...string) (Result, error) {
	if len(sourceTypes) == 0 {
		sourceTypes = c.SupportedSources()
	}
	var result Result
	for _, st := range sourceTypes {
		source, ok := c.sources[st]
		if !ok {
			return result, fmt.Errorf("unsupported source type: %s", st)
		}
		instances, err := source.Discover(ctx)
		if err != nil {
			return result, err
		}
		zerolog.Ctx(ctx).Info().Str("source", st).Int("instances", len(instances)).Msg("Instances discovered")
		result.Discovered += len(instances)

		for _, instance := range instances {
			created, updated, err := c.upsert(ctx, instance)
			if err != nil {
				return result, fmt.Errorf("import %s instance %s: %w", st, instance.Identifier, err)
			}
			if created {
				result.Created++
			}
			if updated {
				result.Updated++
			}
		}
	}
	return result, nil
}

// upsert leaves matching assets alone unless the discovered zone or
// description differ. Ownership and group links are never touched.
func (c *Controller) upsert(ctx context.Context, instance Instance) (bool, bool, error) {
	if instance.Identifier == "" {
		return false, false, nil
	}
	existing, err := c.store.Assets().Scan(ctx, entity.Equals(entity.AttrAssetIdentifier, instance.Identifier))
	if err != nil {
		return false, false, err
	}
	if len(existing) == 0 {
		asset := domain.Asset{
			ID:              c.newID(),
			AssetType:       instance.AssetType,
			AssetIdentifier: instance.Identifier,
			Zone:            instance.Zone,
			Description:     instance.Description,
			Timestamp:       c.now(),
		}
		return true, false, c.store.Assets().Put(ctx, asset)
	}

	asset := existing[0]
	if asset.Zone == instance.Zone && asset.Description == instance.Description {
		return false, false, nil
	}
	asset.Zone = instance.Zone
	asset.Description = instance.Description
	return false, true, c.store.Assets().Put(ctx, asset)
}
