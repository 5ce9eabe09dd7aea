package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/de-tools/service-map/pkg/config"
	"github.com/de-tools/service-map/pkg/runtime/terminal/commands"
	"github.com/de-tools/service-map/pkg/runtime/terminal/export"
	"github.com/de-tools/service-map/pkg/services/discovery"
	"github.com/de-tools/service-map/pkg/store/blob"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/de-tools/service-map/pkg/store/registry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	registry   registry.Registry
	reporter   *export.Reporter
	logOutput  io.Writer
	rootCmd    *cobra.Command
	configPath string

	settings *config.Settings
	store    entity.Store
	blobs    blob.Store
}

// Options contain configuration for the CLI
type Options struct {
	Registry registry.Registry
	Output   io.Writer
	// LogOutput receives structured logs, stderr when nil.
	LogOutput io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}

	cli := &CLI{
		registry:  opts.Registry,
		reporter:  export.NewReporter(opts.Output),
		logOutput: opts.LogOutput,
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) ExecuteContext(ctx context.Context, args ...string) error {
	if args != nil {
		cli.rootCmd.SetArgs(args)
	}
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "service-map",
		Short:             "Asset and service risk tracking",
		SilenceUsage:      true,
		PersistentPreRunE: cli.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return cli.close()
		},
	}

	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Path to a settings file")

	cmd.AddCommand(commands.NewIngestCmd(cli, cli.reporter))
	cmd.AddCommand(commands.NewLintCmd(cli.reporter))
	cmd.AddCommand(commands.NewAggregateCmd(cli, cli.reporter))
	cmd.AddCommand(commands.NewSnapshotCmd(cli))
	cmd.AddCommand(commands.NewImportServicesCmd(cli, cli.reporter))
	cmd.AddCommand(commands.NewDiscoverCmd(cli, cli.reporter))
	cmd.AddCommand(commands.NewInitStoreCmd(cli))

	return cmd
}

// setup loads settings and attaches the logger before any subcommand runs.
func (cli *CLI) setup(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(cli.configPath)
	if err != nil {
		return err
	}
	cli.settings = settings

	level, err := zerolog.ParseLevel(settings.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger := zerolog.New(cli.logOutput).Level(level).With().Timestamp().Logger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))
	return nil
}

func (cli *CLI) close() error {
	if closer, ok := cli.store.(io.Closer); ok {
		cli.store = nil
		return closer.Close()
	}
	return nil
}

func (cli *CLI) Settings() *config.Settings {
	return cli.settings
}

func (cli *CLI) Store(ctx context.Context) (entity.Store, error) {
	if cli.store != nil {
		return cli.store, nil
	}
	store, err := cli.registry.Open(ctx, cli.settings.Store.Backend, cli.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cli.settings.Store.Backend, err)
	}
	cli.store = store
	return store, nil
}

func (cli *CLI) Blobs(ctx context.Context) (blob.Store, error) {
	if cli.blobs != nil {
		return cli.blobs, nil
	}
	blobs, err := OpenBlobs(ctx, cli.settings)
	if err != nil {
		return nil, err
	}
	cli.blobs = blobs
	return blobs, nil
}

func (cli *CLI) Sources(ctx context.Context, names []string) ([]discovery.Source, error) {
	cfg, err := cli.settings.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	available := []discovery.Source{discovery.NewEC2Source(cfg), discovery.NewRDSSource(cfg)}

	var sources []discovery.Source
	for _, name := range names {
		idx := slices.IndexFunc(available, func(s discovery.Source) bool { return s.Type() == name })
		if idx < 0 {
			return nil, fmt.Errorf("unsupported source type: %s", name)
		}
		sources = append(sources, available[idx])
	}
	return sources, nil
}

// OpenBlobs returns the blob backend selected by settings.
func OpenBlobs(ctx context.Context, settings *config.Settings) (blob.Store, error) {
	switch settings.Blob.Backend {
	case "fs":
		return blob.NewFS(settings.Blob.Root), nil
	default:
		cfg, err := settings.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return blob.NewS3(cfg), nil
	}
}
