package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/needlebench/needlebench/internal/config"
	"github.com/needlebench/needlebench/internal/eval"
	"github.com/needlebench/needlebench/internal/haystack"
	"github.com/needlebench/needlebench/internal/observability"
	"github.com/needlebench/needlebench/internal/providers"
	"github.com/needlebench/needlebench/internal/results"
	"github.com/needlebench/needlebench/internal/runner"
	"github.com/needlebench/needlebench/internal/sweep"
)

const defaultConfigPath = "needlebench.yaml"

// buildRunCmd creates the "run" command: execute the full benchmark
// sweep. The command errors (non-zero exit) only on configuration or
// setup failure; trial failures are sentineled and the process still
// exits 0.
func buildRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			points, err := sweep.Generate(cfg.SweepSpec())
			if err != nil {
				return fmt.Errorf("generating sweep: %w", err)
			}

			backend, err := providers.New(cfg.ProviderConfig())
			if err != nil {
				return err
			}

			evaluator, err := eval.New(cfg.EvalConfig())
			if err != nil {
				return err
			}

			corpus, err := haystack.LoadCorpus(cfg.HaystackDir)
			if err != nil {
				return fmt.Errorf("loading haystack corpus: %w", err)
			}
			assembler, err := haystack.New(corpus, backend.Tokenizer())
			if err != nil {
				return fmt.Errorf("preparing haystack: %w", err)
			}

			store, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("opening result store: %w", err)
			}
			defer store.Close()

			var metrics *observability.Metrics
			if cfg.MetricsAddr != "" {
				metrics = observability.NewMetrics()
				go serveMetrics(cfg.MetricsAddr)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := runner.New(backend, evaluator, assembler, store, metrics, slog.Default(), cfg.RunnerConfig())
			summary, runErr := r.Run(ctx, points)
			printSummary(cmd, summary)
			if runErr != nil {
				// Interrupted runs are resumable; completed trials are
				// already persisted.
				fmt.Fprintln(cmd.OutOrStdout(), "run interrupted, rerun to resume")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")
	return cmd
}

// buildSweepCmd creates the "sweep" command: print the derived test
// matrix without running any trials.
func buildSweepCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Print the derived test matrix without running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			points, err := sweep.Generate(cfg.SweepSpec())
			if err != nil {
				return fmt.Errorf("generating sweep: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, p := range points {
				fmt.Fprintln(out, p.String())
			}
			fmt.Fprintf(out, "%d test points\n", len(points))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")
	return cmd
}

func openStore(cfg *config.Config) (results.Store, error) {
	switch cfg.Results.Store {
	case "sqlite":
		return results.NewSQLiteStore(cfg.Results.SQLitePath)
	default:
		contextsDir := ""
		if cfg.SaveContexts {
			contextsDir = cfg.Results.ContextsDir
		}
		return results.NewFSStore(cfg.Results.Dir, contextsDir)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Warn("metrics endpoint failed", "addr", addr, "error", err)
	}
}

func printSummary(cmd *cobra.Command, s *runner.Summary) {
	if s == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status: %s\n", s.Status)
	fmt.Fprintf(out, "trials: %d total, %d succeeded, %d sentineled, %d skipped\n",
		s.Total, s.Succeeded, s.Sentineled, s.Skipped)
}
