package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/raggate/retrieval"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question loop with option selection",
	Long: `Starts a read-eval loop against the corpus. Ambiguous questions list
their document groups and prompt for a choice; 0 cancels. Type "exit" or
"quit" to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("raggate")+" — ask about the corpus; type 'exit' to quit")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(out, promptStyle.Render(">> "))
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.EqualFold(question, "exit") || strings.EqualFold(question, "quit") {
			break
		}

		outcome, err := p.Invoke(ctx, retrieval.Request{Input: question})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, errorStyle.Render("query failed: ")+err.Error())
			continue
		}

		if outcome.Status == retrieval.StatusAmbiguous && len(outcome.Options) > 0 {
			selected, ok := promptSelection(scanner, out, outcome.Options)
			if !ok {
				fmt.Fprintln(out, separatorStyle.Render(strings.Repeat("-", 60)))
				continue
			}
			outcome, err = p.Invoke(ctx, retrieval.Request{
				Input:          question,
				SelectedOption: selected,
				Options:        outcome.Options,
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				fmt.Fprintln(out, errorStyle.Render("query failed: ")+err.Error())
				continue
			}
		}

		printOutcome(out, outcome, a.retrievalOnly())
		fmt.Fprintln(out, separatorStyle.Render(strings.Repeat("-", 60)))
	}
	return scanner.Err()
}

// promptSelection lists the options and reads a choice. ok is false when
// the user cancels or types anything that is not a listed option ID.
func promptSelection(scanner *bufio.Scanner, out io.Writer, options []retrieval.Option) (int, bool) {
	fmt.Fprintln(out, headerStyle.Render("Ambiguous question — choose a document group:"))
	for _, opt := range options {
		fmt.Fprintln(out, renderOption(opt))
	}

	ids := optionIDs(options)
	fmt.Fprintf(out, "Choose option (%s), or 0 to cancel: ", joinInts(ids))
	if !scanner.Scan() {
		return 0, false
	}
	choice := strings.TrimSpace(scanner.Text())
	if choice == "0" {
		fmt.Fprintln(out, "Cancelled.")
		return 0, false
	}
	n, err := strconv.Atoi(choice)
	if err != nil {
		fmt.Fprintln(out, "Invalid input. Cancelled.")
		return 0, false
	}
	for _, id := range ids {
		if id == n {
			return n, true
		}
	}
	fmt.Fprintln(out, "Invalid option. Cancelled.")
	return 0, false
}
