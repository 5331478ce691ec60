package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/smallnest/raggate/retrieval"
)

// previewChars caps the chunk text shown per option preview.
const previewChars = 140

// similarityScore maps an L2 distance onto a friendlier 0-100 scale for
// display. Lower distance means higher score.
func similarityScore(l2 float64) float64 {
	if l2 < 0 {
		l2 = 0
	}
	return 100.0 / (1.0 + l2)
}

// collapseText squeezes whitespace runs into single spaces and clips the
// result to maxChars runes, ellipsis included.
func collapseText(text string, maxChars int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	r := []rune(collapsed)
	if maxChars <= 0 || len(r) <= maxChars {
		return collapsed
	}
	return string(r[:maxChars-1]) + "…"
}

func docLabel(d retrieval.Document) string {
	name := d.SourceName()
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("(%s, page %s)", name, d.PageLabel())
}

// renderOption draws one ambiguity option as a bordered card: distance and
// score on top, up to two chunk previews, then the files it spans.
func renderOption(opt retrieval.Option) string {
	var b strings.Builder
	title := fmt.Sprintf("Option %d", opt.ID)
	fmt.Fprintf(&b, "%s  best_l2=%.3f  score=%.1f\n",
		optionTitleStyle.Render(title), opt.BestDistance, similarityScore(opt.BestDistance))

	previews := opt.Docs
	if len(previews) > 2 {
		previews = previews[:2]
	}
	for _, d := range previews {
		fmt.Fprintf(&b, "%s %s\n", collapseText(d.Content, previewChars), sourceStyle.Render(docLabel(d)))
	}

	files := make([]string, 0, len(opt.Sources))
	pages := make([]string, 0, len(opt.Sources))
	seen := make(map[string]struct{}, len(opt.Sources))
	for _, s := range opt.Sources {
		if _, ok := seen[s.Filename]; !ok {
			seen[s.Filename] = struct{}{}
			files = append(files, s.Filename)
		}
		pages = append(pages, s.Page)
	}
	sort.Strings(files)
	fmt.Fprintf(&b, "%s %s\n", sourceStyle.Render("Files:"), strings.Join(files, ", "))
	fmt.Fprintf(&b, "%s %s", sourceStyle.Render("Pages:"), strings.Join(pages, ", "))

	return optionCardStyle.Render(b.String())
}

// formatSources groups citations by file for the answer footer:
//
//	- [mqtt-guide.pdf (pages: 3, 4)]
func formatSources(refs []retrieval.SourceRef) string {
	if len(refs) == 0 {
		return ""
	}
	order := make([]string, 0, len(refs))
	pages := make(map[string][]string, len(refs))
	for _, s := range refs {
		if _, ok := pages[s.Filename]; !ok {
			order = append(order, s.Filename)
		}
		pages[s.Filename] = append(pages[s.Filename], s.Page)
	}
	var b strings.Builder
	for i, f := range order {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- [%s (pages: %s)]", f, strings.Join(pages[f], ", "))
	}
	return b.String()
}

// printOutcome writes one query result: the answer, the refusal reason,
// or the pending options. With retrievalOnly set, ok outcomes list the
// matched chunks instead of a generated answer.
func printOutcome(w io.Writer, outcome retrieval.Outcome, retrievalOnly bool) {
	switch outcome.Status {
	case retrieval.StatusRefuse:
		reason := outcome.RefusalReason
		if reason == "" {
			reason = "no reason given"
		}
		fmt.Fprintln(w, refusalStyle.Render("Refused: "+reason))
	case retrieval.StatusAmbiguous:
		fmt.Fprintln(w, headerStyle.Render("The question matches several distinct documents:"))
		for _, opt := range outcome.Options {
			fmt.Fprintln(w, renderOption(opt))
		}
		fmt.Fprintln(w, "Re-ask with a more specific question, or use `raggate chat` to pick an option interactively.")
	default:
		if retrievalOnly || outcome.Answer == "" {
			fmt.Fprintln(w, headerStyle.Render("Matched chunks:"))
			for _, d := range outcome.SourceDocuments {
				fmt.Fprintf(w, "- %s %s\n", collapseText(d.Content, previewChars), sourceStyle.Render(docLabel(d)))
			}
		} else {
			fmt.Fprintln(w, answerStyle.Render(outcome.Answer))
		}
		if src := formatSources(outcome.Sources); src != "" {
			fmt.Fprintln(w, sourceStyle.Render("Sources:"))
			fmt.Fprintln(w, src)
		}
	}
}

// optionIDs returns the selectable IDs in ascending order.
func optionIDs(options []retrieval.Option) []int {
	ids := make([]int, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.ID)
	}
	sort.Ints(ids)
	return ids
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
