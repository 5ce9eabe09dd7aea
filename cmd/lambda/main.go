package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/de-tools/service-map/pkg/config"
	"github.com/de-tools/service-map/pkg/runtime/function"
	"github.com/de-tools/service-map/pkg/runtime/terminal"
	"github.com/de-tools/service-map/pkg/services/ingest"
	"github.com/de-tools/service-map/pkg/services/risk"
	"github.com/de-tools/service-map/pkg/services/snapshot"
	"github.com/de-tools/service-map/pkg/services/workflow"
	"github.com/de-tools/service-map/pkg/store/registry"
	"github.com/rs/zerolog"
)

func main() {
	handler, logger, err := setup(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	lambda.StartWithOptions(handler.Invoke, lambda.WithContext(logger.WithContext(context.Background())))
}

func setup(ctx context.Context) (*function.Handler, zerolog.Logger, error) {
	settings, err := config.Load(os.Getenv("SERVICEMAP_CONFIG"))
	if err != nil {
		return nil, zerolog.Logger{}, err
	}
	level, err := zerolog.ParseLevel(settings.Log.Level)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("invalid log level: %w", err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("environment", settings.Environment).Logger()
	ctx = logger.WithContext(ctx)

	store, err := registry.Default().Open(ctx, settings.Store.Backend, settings)
	if err != nil {
		return nil, logger, fmt.Errorf("failed to open %s store: %w", settings.Store.Backend, err)
	}
	blobs, err := terminal.OpenBlobs(ctx, settings)
	if err != nil {
		return nil, logger, err
	}

	ingestHandler, err := ingest.NewHandler(blobs, store, ingest.NewLocks(), settings.StoreKey())
	if err != nil {
		return nil, logger, err
	}
	aggregator, err := risk.NewAggregator(store, settings.Aggregation.BatchSize)
	if err != nil {
		return nil, logger, err
	}
	publisher, err := snapshot.NewPublisher(blobs, settings.Snapshot.Bucket, settings.Snapshot.Key)
	if err != nil {
		return nil, logger, err
	}
	runner, err := workflow.NewRunner(aggregator, publisher, workflow.RunnerConfig{Interval: settings.Aggregation.Interval})
	if err != nil {
		return nil, logger, err
	}

	handler, err := function.NewHandler(ingestHandler, runner)
	return handler, logger, err
}
