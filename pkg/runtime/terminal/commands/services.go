package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/de-tools/service-map/pkg/runtime/terminal/export"
	"github.com/de-tools/service-map/pkg/services/importer"
	"github.com/de-tools/service-map/pkg/services/inventory"
	"github.com/spf13/cobra"
)

type ImportServicesCmd struct {
	file     string
	rt       Runtime
	reporter *export.Reporter
}

func NewImportServicesCmd(rt Runtime, reporter *export.Reporter) *cobra.Command {
	ic := &ImportServicesCmd{rt: rt, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "import-services",
		Short: "Upsert services from a risk review YAML file",
		RunE:  ic.run,
	}

	cmd.Flags().StringVar(&ic.file, "file", "", "Review file to import")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (ic *ImportServicesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	f, err := os.Open(ic.file)
	if err != nil {
		return fmt.Errorf("failed to open review file: %w", err)
	}
	defer f.Close()

	store, err := ic.rt.Store(ctx)
	if err != nil {
		return err
	}
	inv, err := inventory.NewService(store)
	if err != nil {
		return err
	}
	imp, err := importer.NewImporter(inv)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := imp.Import(ctx, f)
	if err != nil {
		return err
	}
	if err := ic.reporter.Handle(export.ImportReport(result, start, time.Now())); err != nil {
		return err
	}
	return result.Err()
}
