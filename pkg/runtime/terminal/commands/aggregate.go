package commands

import (
	"fmt"

	"github.com/de-tools/service-map/pkg/runtime/terminal/export"
	"github.com/de-tools/service-map/pkg/services/risk"
	"github.com/de-tools/service-map/pkg/services/snapshot"
	"github.com/de-tools/service-map/pkg/services/workflow"
	"github.com/spf13/cobra"
)

type AggregateCmd struct {
	publish  bool
	rt       Runtime
	reporter *export.Reporter
}

func NewAggregateCmd(rt Runtime, reporter *export.Reporter) *cobra.Command {
	ac := &AggregateCmd{rt: rt, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Recompute asset and service risk scores",
		RunE:  ac.run,
	}

	cmd.Flags().BoolVar(&ac.publish, "publish", false, "Publish the snapshot after aggregating")

	return cmd
}

func (ac *AggregateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := ac.rt.Settings()

	store, err := ac.rt.Store(ctx)
	if err != nil {
		return err
	}
	aggregator, err := risk.NewAggregator(store, settings.Aggregation.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to create aggregator: %w", err)
	}

	var publisher workflow.Publisher
	if ac.publish {
		blobs, err := ac.rt.Blobs(ctx)
		if err != nil {
			return err
		}
		p, err := snapshot.NewPublisher(blobs, settings.Snapshot.Bucket, settings.Snapshot.Key)
		if err != nil {
			return err
		}
		publisher = p
	}

	runner, err := workflow.NewRunner(aggregator, publisher, workflow.RunnerConfig{Interval: settings.Aggregation.Interval})
	if err != nil {
		return err
	}
	progress, runErr := runner.RunOnce(ctx)

	report := export.AggregationReport(progress.Summary, progress.Workflow.StartedAt, progress.Workflow.FinishedAt)
	if err := ac.reporter.Handle(report); err != nil {
		return err
	}
	return runErr
}
