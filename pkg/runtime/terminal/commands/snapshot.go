package commands

import (
	"fmt"

	"github.com/de-tools/service-map/pkg/services/risk"
	"github.com/de-tools/service-map/pkg/services/snapshot"
	"github.com/spf13/cobra"
)

type SnapshotCmd struct {
	rt Runtime
}

func NewSnapshotCmd(rt Runtime) *cobra.Command {
	sc := &SnapshotCmd{rt: rt}
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Publish the snapshot of the current store state",
		RunE:  sc.run,
	}
}

func (sc *SnapshotCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := sc.rt.Settings()

	store, err := sc.rt.Store(ctx)
	if err != nil {
		return err
	}
	blobs, err := sc.rt.Blobs(ctx)
	if err != nil {
		return err
	}
	publisher, err := snapshot.NewPublisher(blobs, settings.Snapshot.Bucket, settings.Snapshot.Key)
	if err != nil {
		return err
	}

	graph, err := risk.LoadGraph(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	snap, err := publisher.PublishGraph(ctx, graph)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Published %d services to %s/%s\n",
		len(snap.Services), settings.Snapshot.Bucket, settings.Snapshot.Key)
	return err
}
