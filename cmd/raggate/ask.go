package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/smallnest/raggate/retrieval"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the outcome",
	Long: `Runs one question through the pipeline and prints the answer, the
refusal reason, or the ambiguity options.

Example:
  raggate ask "What are MQTT QoS levels?"
  raggate ask --json "kafka vs mqtt"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the raw outcome as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline()
	if err != nil {
		return err
	}
	outcome, err := p.Invoke(ctx, retrieval.Request{Input: args[0]})
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}
	printOutcome(cmd.OutOrStdout(), outcome, a.retrievalOnly())
	return nil
}
