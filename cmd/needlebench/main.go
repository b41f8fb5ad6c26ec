// Package main provides the CLI entry point for the needlebench
// retrieval benchmark.
//
// needlebench measures how reliably a language model retrieves a planted
// fact from a long context, sweeping context length and insertion depth.
//
// # Basic Usage
//
// Run a benchmark:
//
//	needlebench run --config needlebench.yaml
//
// Preview the test matrix without running anything:
//
//	needlebench sweep --config needlebench.yaml
//
// # Environment Variables
//
//   - OPENAI_API_KEY / ANTHROPIC_API_KEY / CO_API_KEY: provider credentials
//   - NIAH_EVALUATOR_API_KEY: key for the LLM-as-judge evaluator
//   - LANGCHAIN_API_KEY: key for the langsmith evaluator
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "needlebench",
		Short: "needlebench - needle-in-a-haystack retrieval benchmark",
		Long: `needlebench plants a fact at a controlled depth inside a long context,
asks the model to retrieve it, and scores the answer with an LLM judge
across a sweep of context lengths and depths.

Supported providers: OpenAI, Anthropic, Cohere
Supported evaluators: OpenAI (LLM-as-judge), LangSmith`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		// SilenceUsage prevents printing usage on every error.
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildSweepCmd(),
	)

	return rootCmd
}
