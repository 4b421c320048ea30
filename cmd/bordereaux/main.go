// Package main is the entry point for the bordereaux binary.
// It runs the staged bordereaux pipeline one step at a time or end to end.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polisai/bordereaux/pkg/config"
	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine"
	"github.com/polisai/bordereaux/pkg/logging"
	"github.com/polisai/bordereaux/pkg/storage"
	"github.com/polisai/bordereaux/pkg/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stageCommands maps subcommands to the step they run.
var stageCommands = []struct {
	use, step, short string
}{
	{"normalize", "STEP2", "Normalize carrier files into project records"},
	{"geo", "STEP3", "Resolve ZIP codes and census tracts"},
	{"eligibility", "STEP4", "Classify records against the CEJST dataset"},
	{"accumulate", "STEP5", "Aggregate exposure per ZIP code"},
	{"ledger", "STEP6", "Derive journal lines for the general ledger"},
	{"consolidate", "STEP7", "Write the Phase 1 deliverables"},
}

// newRootCmd creates the root command for bordereaux.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bordereaux",
		Short: "Staged bordereaux pipeline",
		Long: `Turns carrier bordereaux exports into ledger-ready and compliance-ready tables.

Each stage reads the previous stage's output and writes an accepted table and
an exceptions table under output_stepN/. Run a single stage by name or the
whole chain with "run".

Example:
  bordereaux run --config bordereaux.yaml
  bordereaux geo --log-level debug`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "Human-readable log output")

	for _, sc := range stageCommands {
		step := sc.step
		rootCmd.AddCommand(&cobra.Command{
			Use:   sc.use,
			Short: sc.short + " (" + step + ")",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSession(cmd, false, func(ctx context.Context, s *session) error {
					rep, err := s.runner.RunStage(ctx, step)
					printReports(cmd.OutOrStdout(), []engine.Report{rep})
					return err
				})
			},
		})
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run every stage in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, false, func(ctx context.Context, s *session) error {
				reports, err := s.runner.RunAll(ctx)
				printReports(cmd.OutOrStdout(), reports)
				return err
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Run every stage without writing outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, true, func(ctx context.Context, s *session) error {
				reports, err := s.runner.RunAll(ctx)
				printReports(cmd.OutOrStdout(), reports)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "would write:")
				for _, p := range s.runner.Pending() {
					fmt.Fprintln(out, "  "+p)
				}
				return nil
			})
		},
	})

	rootCmd.AddCommand(newRunsCmd())

	return rootCmd
}

// newRunsCmd lists the catalogued stages of a run.
func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs <run-id>",
		Short: "Show the catalogued stages of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Catalog.Enabled {
				return fmt.Errorf("run catalog is disabled; set catalog.enabled")
			}
			store, err := storage.OpenSQLiteRunStore(cmd.Context(), resolve(cfg.Paths.Root, cfg.Catalog.Path))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%-6s %-20s input=%d accepted=%d exceptions=%d %s %s\n",
					r.Stage, r.Outcome, r.InputRows, r.AcceptedRows, r.ExceptionRows,
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.Error)
			}
			return nil
		},
	}
}

// session holds everything a pipeline command needs for one invocation.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   *engine.Runner
	catalog  storage.RunStore
	metrics  *telemetry.RunMetrics
	shutdown func(context.Context) error
}

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		cfg.Logging.Pretty = true
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func withSession(cmd *cobra.Command, dryRun bool, fn func(context.Context, *session) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cmd, dryRun)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s)
	s.close()
	return runErr
}

func openSession(ctx context.Context, cmd *cobra.Command, dryRun bool) (*session, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, shutdown: shutdown}

	if cfg.Catalog.Enabled && !dryRun {
		catalog, err := storage.OpenSQLiteRunStore(ctx, resolve(cfg.Paths.Root, cfg.Catalog.Path))
		if err != nil {
			s.close()
			return nil, err
		}
		s.catalog = catalog
	}
	if cfg.Telemetry.MetricsFile != "" && !dryRun {
		s.metrics = telemetry.NewRunMetrics()
	}

	run := domain.NewRunContext(time.Now(), cfg.AsOf())
	logger.Info("pipeline run starting",
		"run_id", run.ID,
		"root", cfg.Paths.Root,
		"as_of_date", run.AsOfDate.Format("2006-01-02"),
		"dry_run", dryRun,
	)

	runner, err := engine.NewRunner(cfg, engine.Options{
		Store:   storage.NewFSStore(cfg.Paths.Root),
		Catalog: s.catalog,
		Metrics: s.metrics,
		Run:     run,
		DryRun:  dryRun,
		Logger:  logger,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	s.runner = runner
	return s, nil
}

// close flushes metrics and spans. Failures are logged; the pipeline result
// stands.
func (s *session) close() {
	if s.metrics != nil {
		if err := s.metrics.WriteTextfile(resolve(s.cfg.Paths.Root, s.cfg.Telemetry.MetricsFile)); err != nil {
			s.logger.Warn("failed to write metrics textfile", "error", err)
		}
	}
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			s.logger.Warn("failed to close run catalog", "error", err)
		}
	}
	if s.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.shutdown(ctx); err != nil {
			s.logger.Warn("failed to flush traces", "error", err)
		}
	}
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func printReports(w io.Writer, reports []engine.Report) {
	for _, r := range reports {
		if r.Stage == "" {
			continue
		}
		fmt.Fprintf(w, "%-6s %-20s input=%d accepted=%d exceptions=%d\n",
			r.Stage, r.Outcome, r.InputRows, r.Accepted, r.Exceptions)
	}
}
