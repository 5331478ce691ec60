package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "raggate",
	Short: "Gated retrieval question answering over a fixed document corpus",
	Long: `raggate answers questions strictly from an ingested document corpus.
Queries outside the corpus domain are refused, weak retrieval results are
refused rather than guessed at, and queries matching several distinct
documents come back as options for the caller to choose from.

Typical flow:
  raggate ingest --corpus ./docs       # build the vector store
  raggate ask "How do MQTT QoS levels work?"
  raggate chat                         # interactive loop with option selection
  raggate eval --cases cases.jsonl     # replay a QA regression suite`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "raggate.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, none); overrides the config")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(evalCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
