package commands

import (
	"fmt"
	"os"

	"github.com/de-tools/service-map/pkg/runtime/terminal/export"
	"github.com/de-tools/service-map/pkg/services/rules"
	"github.com/spf13/cobra"
)

type LintCmd struct {
	file     string
	strict   bool
	reporter *export.Reporter
}

func NewLintCmd(reporter *export.Reporter) *cobra.Command {
	lc := &LintCmd{reporter: reporter}
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Classify the lines of a rule file without applying them",
		RunE:  lc.run,
	}

	cmd.Flags().StringVar(&lc.file, "file", "", "Rule file to check")
	cmd.Flags().BoolVar(&lc.strict, "strict", false, "Fail when any line is unparsed")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (lc *LintCmd) run(cmd *cobra.Command, _ []string) error {
	text, err := os.ReadFile(lc.file)
	if err != nil {
		return fmt.Errorf("failed to read rule file: %w", err)
	}
	result := rules.Parse(cmd.Context(), string(text))
	if err := lc.reporter.Handle(export.LintReport(lc.file, result)); err != nil {
		return err
	}
	if lc.strict && len(result.Unparsed) > 0 {
		return fmt.Errorf("%d unparsed lines in %s", len(result.Unparsed), lc.file)
	}
	return nil
}
