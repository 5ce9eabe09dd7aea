package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/de-tools/service-map/pkg/config"
	"github.com/de-tools/service-map/pkg/runtime/terminal"
	"github.com/de-tools/service-map/pkg/server"
	"github.com/de-tools/service-map/pkg/services/inventory"
	"github.com/de-tools/service-map/pkg/services/risk"
	"github.com/de-tools/service-map/pkg/services/snapshot"
	"github.com/de-tools/service-map/pkg/services/workflow"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/de-tools/service-map/pkg/store/registry"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath   string
	scheduler bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for the service map",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to a settings file")
	rootCmd.Flags().BoolVar(&scheduler, "scheduler", true, "Run the periodic risk aggregation")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	settings, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(settings.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	store, err := registry.Default().Open(ctx, settings.Store.Backend, settings)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", settings.Store.Backend, err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}
	if initializer, ok := store.(entity.Initializer); ok {
		if err := initializer.EnsureTables(ctx); err != nil {
			return fmt.Errorf("failed to provision tables: %w", err)
		}
	}

	inv, err := inventory.NewService(store)
	if err != nil {
		return err
	}

	if scheduler {
		workflowCtrl, err := newScheduler(ctx, settings, store)
		if err != nil {
			return err
		}
		defer workflowCtrl.Shutdown()
	}

	addr := net.JoinHostPort(settings.Server.Host, settings.Server.Port)
	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:         addr,
		Dependencies: server.Dependencies{Inventory: inv},
	})
	return webAPI.Start(ctx)
}

func newScheduler(ctx context.Context, settings *config.Settings, store entity.Store) (*workflow.DefaultController, error) {
	var publisher workflow.Publisher
	if settings.Snapshot.Bucket != "" {
		blobs, err := terminal.OpenBlobs(ctx, settings)
		if err != nil {
			return nil, err
		}
		p, err := snapshot.NewPublisher(blobs, settings.Snapshot.Bucket, settings.Snapshot.Key)
		if err != nil {
			return nil, err
		}
		publisher = p
	} else {
		zerolog.Ctx(ctx).Warn().Msg("No snapshot bucket configured, aggregating without publishing")
	}

	workflowCtrl := workflow.NewController(func(string) (*workflow.Runner, error) {
		aggregator, err := risk.NewAggregator(store, settings.Aggregation.BatchSize)
		if err != nil {
			return nil, err
		}
		return workflow.NewRunner(aggregator, publisher, workflow.RunnerConfig{Interval: settings.Aggregation.Interval})
	})
	if err := workflowCtrl.Start(ctx, settings.Environment); err != nil {
		return nil, fmt.Errorf("failed to start aggregation: %w", err)
	}
	return workflowCtrl, nil
}
