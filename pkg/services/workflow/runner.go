package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/service-map/pkg/models/api"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/services/risk"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Aggregator interface {
	Aggregate(ctx context.Context) (*risk.Graph, risk.Summary, error)
}

type Publisher interface {
	PublishGraph(ctx context.Context, graph *risk.Graph) (api.Snapshot, error)
}

// Runner recomputes scores and republishes the snapshot on a fixed
// interval until its context is cancelled.
type Runner struct {
	aggregator Aggregator
	publisher  Publisher
	done       chan struct{}
	progress   chan RunnerProgress
	config     RunnerConfig
}

type RunnerConfig struct {
	Interval time.Duration
}

type RunnerProgress struct {
	Workflow domain.Workflow
	Summary  risk.Summary
}

// NewRunner builds a runner. publisher may be nil to aggregate without
// publishing.
func NewRunner(aggregator Aggregator, publisher Publisher, config RunnerConfig) (*Runner, error) {
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", config.Interval)
	}
	return &Runner{
		aggregator: aggregator,
		publisher:  publisher,
		done:       make(chan struct{}),
		progress:   make(chan RunnerProgress, 100),
		config:     config,
	}, nil
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) Progress() <-chan RunnerProgress {
	return r.progress
}

// Run executes a pass immediately and then on every tick. It must be called
// at most once.
func (r *Runner) Run(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	defer close(r.done)
	defer close(r.progress)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		p, err := r.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Str("workflow_id", p.Workflow.ID).Msg("Aggregation pass failed")
		}
		select {
		case r.progress <- p:
		default:
			logger.Warn().Str("workflow_id", p.Workflow.ID).Msg("Progress dropped, no reader")
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("Aggregation runner stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs one aggregation pass and publishes the snapshot when the
// aggregation succeeded.
func (r *Runner) RunOnce(ctx context.Context) (RunnerProgress, error) {
	wf := domain.Workflow{
		ID:        uuid.NewString(),
		Status:    domain.WorkflowStatusPending,
		StartedAt: time.Now().UTC(),
	}
	logger := zerolog.Ctx(ctx).With().Str("workflow_id", wf.ID).Logger()
	ctx = logger.WithContext(ctx)

	graph, summary, err := r.aggregator.Aggregate(ctx)
	if err == nil && r.publisher != nil {
		_, err = r.publisher.PublishGraph(ctx, graph)
	}

	wf.FinishedAt = time.Now().UTC()
	switch {
	case err == nil:
		wf.Status = domain.WorkflowStatusFinished
	case errors.Is(err, context.Canceled):
		wf.Status = domain.WorkflowStatusCancelled
	default:
		wf.Status = domain.WorkflowStatusFailed
	}
	if err != nil {
		msg := err.Error()
		wf.Error = &msg
	}
	return RunnerProgress{Workflow: wf, Summary: summary}, err
}
