package commands

import (
	"fmt"
	"time"

	"github.com/de-tools/service-map/pkg/runtime/terminal/export"
	"github.com/de-tools/service-map/pkg/services/discovery"
	"github.com/spf13/cobra"
)

type DiscoverCmd struct {
	sources  []string
	rt       Runtime
	reporter *export.Reporter
}

func NewDiscoverCmd(rt Runtime, reporter *export.Reporter) *cobra.Command {
	dc := &DiscoverCmd{rt: rt, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Import AWS instances as assets",
		RunE:  dc.run,
	}

	cmd.Flags().StringSliceVar(&dc.sources, "sources",
		[]string{discovery.SourceEC2, discovery.SourceRDS}, "Discovery sources to run")

	return cmd
}

func (dc *DiscoverCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := dc.rt.Store(ctx)
	if err != nil {
		return err
	}
	sources, err := dc.rt.Sources(ctx, dc.sources)
	if err != nil {
		return err
	}
	ctrl, err := discovery.NewController(store, sources...)
	if err != nil {
		return fmt.Errorf("failed to create discovery controller: %w", err)
	}

	start := time.Now()
	result, err := ctrl.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	return dc.reporter.Handle(export.DiscoveryReport(ctrl.SupportedSources(), result, start, time.Now()))
}
