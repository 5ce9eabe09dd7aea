package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/de-tools/service-map/pkg/runtime/terminal/export"
	"github.com/de-tools/service-map/pkg/services/ingest"
	"github.com/de-tools/service-map/pkg/services/rules"
	"github.com/spf13/cobra"
)

type IngestCmd struct {
	file     string
	bucket   string
	key      string
	rt       Runtime
	reporter *export.Reporter
}

func NewIngestCmd(rt Runtime, reporter *export.Reporter) *cobra.Command {
	ic := &IngestCmd{rt: rt, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Apply an interlink rule file to the entity store",
		RunE:  ic.run,
	}

	cmd.Flags().StringVar(&ic.file, "file", "", "Local rule file to apply")
	cmd.Flags().StringVar(&ic.bucket, "bucket", "", "Bucket holding the rule file (defaults to rules.bucket)")
	cmd.Flags().StringVar(&ic.key, "key", "", "Key of the rule file (defaults to rules.key)")
	cmd.MarkFlagsMutuallyExclusive("file", "bucket")

	return cmd
}

func (ic *IngestCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := ic.rt.Settings()

	store, err := ic.rt.Store(ctx)
	if err != nil {
		return err
	}
	blobs, err := ic.rt.Blobs(ctx)
	if err != nil {
		return err
	}
	handler, err := ingest.NewHandler(blobs, store, ingest.NewLocks(), settings.StoreKey())
	if err != nil {
		return fmt.Errorf("failed to create ingest handler: %w", err)
	}

	start := time.Now()
	var (
		title    string
		report   rules.Report
		applyErr error
	)
	if ic.file != "" {
		text, err := os.ReadFile(ic.file)
		if err != nil {
			return fmt.Errorf("failed to read rule file: %w", err)
		}
		release, err := handler.Lock(ctx)
		if err != nil {
			return err
		}
		title = ic.file
		report, applyErr = handler.ApplyDocument(ctx, string(text))
		release()
	} else {
		bucket, key := ic.bucket, ic.key
		if bucket == "" {
			bucket = settings.Rules.Bucket
		}
		if key == "" {
			key = settings.Rules.Key
		}
		if bucket == "" {
			return fmt.Errorf("either --file or a rules bucket is required")
		}
		title = fmt.Sprintf("%s/%s", bucket, key)
		report, applyErr = handler.HandleObject(ctx, bucket, key)
	}

	if err := ic.reporter.Handle(export.RulesReport(title, report, start, time.Now())); err != nil {
		return err
	}
	return applyErr
}
