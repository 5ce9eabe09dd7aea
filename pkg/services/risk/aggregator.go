package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/rs/zerolog"
)

const DefaultBatchSize = 100

type Summary struct {
	Services        int
	MaskedServices  int
	ServicesUpdated int
	Assets          int
	AssetsUpdated   int
	Indicators      int
	WriteFailures   int
	Duration        time.Duration
}

// Aggregator recomputes asset and service scores from the whole graph.
// Runs are idempotent: unchanged scores are not written back, and changed
// ones are written as score-only updates so rule writes landing during a
// run are kept.
type Aggregator struct {
	store     entity.Store
	batchSize int
}

func NewAggregator(store entity.Store, batchSize int) (*Aggregator, error) {
	if store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Aggregator{store: store, batchSize: batchSize}, nil
}

// Aggregate runs the three scoring passes and returns the re-scored graph.
// A failed record write is logged and the pass continues; the joined write
// errors are returned with the graph. Cancellation stops the asset pass
// at the next batch boundary.
func (a *Aggregator) Aggregate(ctx context.Context) (*Graph, Summary, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	graph, err := LoadGraph(ctx, a.store)
	if err != nil {
		return nil, Summary{}, err
	}
	summary := Summary{
		Services:   len(graph.Services),
		Assets:     len(graph.Assets),
		Indicators: len(graph.Indicators),
	}

	reviewScores := make(map[string]int, len(graph.Services))
	for _, s := range graph.Services {
		reviewScores[s.ID] = s.ReviewScore()
	}

	var writeErrs []error
	if err := a.scoreAssets(ctx, graph, &summary, &writeErrs); err != nil {
		summary.Duration = time.Since(start)
		return graph, summary, errors.Join(append(writeErrs, err)...)
	}
	a.rollupServices(ctx, graph, reviewScores, &summary, &writeErrs)

	summary.WriteFailures = len(writeErrs)
	summary.Duration = time.Since(start)
	logger.Info().
		Int("services", summary.Services).
		Int("services_updated", summary.ServicesUpdated).
		Int("assets", summary.Assets).
		Int("assets_updated", summary.AssetsUpdated).
		Int("write_failures", summary.WriteFailures).
		Dur("duration", summary.Duration).
		Msg("Aggregation finished")
	return graph, summary, errors.Join(writeErrs...)
}

// AssetScore is the highest likelihood weight among the indicators, 0 when
// there are none.
func AssetScore(indicators []domain.Indicator) int {
	score := 0
	for _, ind := range indicators {
		score = max(score, domain.SeverityWeight(ind.LikelihoodIndicator))
	}
	return score
}

func (a *Aggregator) scoreAssets(ctx context.Context, graph *Graph, summary *Summary, writeErrs *[]error) error {
	logger := zerolog.Ctx(ctx)
	byAsset := graph.IndicatorsByAsset()

	for start := 0; start < len(graph.Assets); start += a.batchSize {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("scored", start).Msg("Aggregation cancelled")
			return err
		}
		end := min(start+a.batchSize, len(graph.Assets))
		for i := start; i < end; i++ {
			asset := &graph.Assets[i]
			score := AssetScore(byAsset[asset.ID])
			if score == asset.Score {
				continue
			}
			asset.Score = score
			err := a.store.Assets().SetScore(ctx, asset.ID, score)
			if errors.Is(err, entity.ErrNotFound) {
				logger.Debug().Str("asset_id", asset.ID).Msg("Asset deleted before scoring")
				continue
			}
			if err != nil {
				logger.Error().Err(err).Str("asset_id", asset.ID).Msg("Failed to write asset score")
				*writeErrs = append(*writeErrs, fmt.Errorf("asset %s: %w", asset.ID, err))
				continue
			}
			summary.AssetsUpdated++
		}
	}
	return nil
}

func (a *Aggregator) rollupServices(
	ctx context.Context,
	graph *Graph,
	reviewScores map[string]int,
	summary *Summary,
	writeErrs *[]error,
) {
	logger := zerolog.Ctx(ctx)
	groups := graph.GroupsByService()
	members := graph.AssetsByGroup()

	for i := range graph.Services {
		service := &graph.Services[i]
		score := reviewScores[service.ID]
		if service.Masked {
			summary.MaskedServices++
		} else {
			for _, grp := range groups[service.ID] {
				for _, asset := range members[grp.ID] {
					score = max(score, asset.Score)
				}
			}
		}

		if score == service.Score {
			continue
		}
		service.Score = score
		err := a.store.Services().SetScore(ctx, service.ID, score)
		if errors.Is(err, entity.ErrNotFound) {
			logger.Debug().Str("service_id", service.ID).Msg("Service deleted before scoring")
			continue
		}
		if err != nil {
			logger.Error().Err(err).Str("service_id", service.ID).Msg("Failed to write service score")
			*writeErrs = append(*writeErrs, fmt.Errorf("service %s: %w", service.ID, err))
			continue
		}
		summary.ServicesUpdated++
	}
}
