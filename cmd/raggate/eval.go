package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/raggate/eval"
)

var (
	evalCases       string
	evalResultsPath string
	evalAutoResolve bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Replay a JSONL case suite and report pass rates",
	Long: `Loads expectation cases from a JSONL file, runs each query through
the pipeline and checks status, citations and answer hygiene. Exits
nonzero when any case fails.

Example:
  raggate eval --cases eval/cases.jsonl --out results.jsonl`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalCases, "cases", "", "Path to the JSONL case file (required)")
	evalCmd.Flags().StringVar(&evalResultsPath, "out", "", "Write per-case results as JSONL to this path")
	evalCmd.Flags().BoolVar(&evalAutoResolve, "auto-resolve-ambiguous", false, "Select the first option when a case comes back ambiguous")
	_ = evalCmd.MarkFlagRequired("cases")
}

func runEval(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cases, err := eval.LoadCases(evalCases)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline()
	if err != nil {
		return err
	}
	runner, err := eval.NewRunner(p, eval.Options{
		AutoResolveAmbiguous: evalAutoResolve,
		RetrievalOnly:        a.retrievalOnly(),
		Logger:               a.logger,
	})
	if err != nil {
		return err
	}

	results, err := runner.Run(ctx, cases)
	if err != nil {
		return err
	}
	if evalResultsPath != "" {
		if err := eval.WriteResults(evalResultsPath, results); err != nil {
			return err
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), eval.FormatReport(results))

	summary := eval.Summarize(results)
	if summary.Passed < summary.Total {
		return fmt.Errorf("%d of %d cases failed", summary.Total-summary.Passed, summary.Total)
	}
	return nil
}
