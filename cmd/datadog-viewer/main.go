package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	viewer "github.com/foxfirecodes/datadog-viewer"
	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all subcommands.
type GlobalFlags struct {
	ConfigPath string
	CSVPath    string
}

// buildRoot creates the root command with its subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	statsFlags := &StatsFlags{}
	validateFlags := &ValidateFlags{}
	toggleFlags := &ToggleFlags{}

	viewerCommand := command{flags: globalFlags}

	root := createRootCommand(globalFlags)

	root.AddCommand(
		createServeCommand(globalFlags),
		createStatsCommand(viewerCommand, statsFlags),
		createValidateCommand(viewerCommand, validateFlags),
		createToggleCommand(viewerCommand, toggleFlags),
	)

	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "datadog-viewer",
		Short: "DataDog test-failure triage tool",
		Long: `datadog-viewer ingests a DataDog error-export CSV and tracks which
test failures have been addressed.

Examples:
  datadog-viewer serve --config=config.toml
  datadog-viewer stats --csv=errors.csv
  datadog-viewer validate --csv=errors.csv
  datadog-viewer toggle --id=2-1a2b3c4d5e6f7a8b`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.CSVPath, "csv", "", "path to the DataDog CSV export (overrides config)")

	return root
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the viewer HTTP daemon",
		Long: `Start the HTTP daemon serving the error catalog, addressed-state
toggles and progress stats.

Examples:
  datadog-viewer serve                  # defaults, errors.csv in cwd
  datadog-viewer serve config.toml      # explicit config file
  datadog-viewer serve --csv=export.csv # config defaults, custom CSV`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(globalFlags, args)
		},
	}
	return cmd
}

func runServeCommand(flags *GlobalFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg, err := loadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if flags.CSVPath != "" {
		cfg.CSVFile = flags.CSVPath
	}

	if cfg.Log != nil {
		setDefaultLogger(cfg.Log)
	}

	opts := viewer.Options{
		CSVPath:  cfg.CSVFile,
		State:    cfg.State,
		PageSize: cfg.PageSize,
	}
	if cfg.History.Enabled {
		sink, err := viewer.NewHistorySink(cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("failed to open history sink: %w", err)
		}
		opts.Sink = sink
	}

	if err := viewer.RegisterMetricsDefault(); err != nil {
		fmt.Printf("Warning: failed to register metrics: %v\n", err)
	}
	if cfg.Server.MetricsListen != "" {
		go func() {
			if err := viewer.ServeMetrics(cfg.Server.MetricsListen); err != nil {
				fmt.Printf("Metrics server error: %v\n", err)
			}
		}()
	}

	tr, err := viewer.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}
	defer func() { _ = tr.Close() }()

	server, err := viewer.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, tr)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	fmt.Printf("Starting datadog-viewer server on %s%s\n", cfg.Server.Listen, cfg.Server.BasePath)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	return server.Close()
}

// createStatsCommand creates the stats subcommand
func createStatsCommand(viewerCommand command, statsFlags *StatsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print triage progress",
		Long: `Load the CSV and addressed-state store and print total, addressed
and unaddressed counts plus the progress percentage.

Examples:
  datadog-viewer stats
  datadog-viewer stats --csv=export.csv --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return viewerCommand.Stats(*statsFlags)
		},
	}

	cmd.Flags().BoolVar(&statsFlags.JSON, "json", false, "print stats as JSON")

	return cmd
}

// createValidateCommand creates the validate subcommand
func createValidateCommand(viewerCommand command, validateFlags *ValidateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a CSV export and report skipped rows",
		Long: `Parse the CSV without serving it and report every row that would be
skipped, with its line number and reason.

Examples:
  datadog-viewer validate --csv=export.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return viewerCommand.Validate(*validateFlags)
		},
	}

	cmd.Flags().BoolVar(&validateFlags.Quiet, "quiet", false, "suppress per-row output, exit status only")

	return cmd
}

// createToggleCommand creates the toggle subcommand
func createToggleCommand(viewerCommand command, toggleFlags *ToggleFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Flip the addressed flag of a record",
		Long: `Toggle the addressed flag of one record directly against the local
state store. Do not run this while the daemon is serving the same store.

Examples:
  datadog-viewer toggle --id=2-1a2b3c4d5e6f7a8b`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return viewerCommand.Toggle(*toggleFlags)
		},
	}

	cmd.Flags().StringVar(&toggleFlags.ID, "id", "", "record id (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}

	return cmd
}
