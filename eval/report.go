package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Summary aggregates a result list.
type Summary struct {
	Total    int
	Passed   int
	ByStatus map[string]int
}

// Summarize counts passes and actual statuses.
func Summarize(results []Result) Summary {
	s := Summary{
		Total:    len(results),
		ByStatus: map[string]int{"ok": 0, "refuse": 0, "ambiguous": 0},
	}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
		s.ByStatus[r.ActualStatus]++
	}
	return s
}

// PassRate returns the pass percentage, 0 for an empty run.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100.0
}

// FormatReport renders the human-readable run report.
func FormatReport(results []Result) string {
	s := Summarize(results)

	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d\n", s.Total)
	fmt.Fprintf(&b, "Passed: %d\n", s.Passed)
	fmt.Fprintf(&b, "Pass rate: %.2f%%\n\n", s.PassRate())

	b.WriteString("Actual status counts:\n")
	for _, status := range statusOrder(s.ByStatus) {
		fmt.Fprintf(&b, "- %s: %d\n", status, s.ByStatus[status])
	}
	b.WriteString("\n")

	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		b.WriteString("Failures: none\n")
		return b.String()
	}

	b.WriteString("Failures:\n")
	for _, r := range failed {
		var reasons []string
		if !r.StatusOK {
			reasons = append(reasons, fmt.Sprintf("status(%s->%s)", r.ExpectStatus, r.ActualStatus))
		}
		if !r.SourcesOK {
			reasons = append(reasons, "sources")
		}
		if !r.HygieneOK {
			reasons = append(reasons, "hygiene")
		}
		if !r.ReasonOK {
			reasons = append(reasons, "reason")
		}
		fmt.Fprintf(&b, "- %s: %s\n", r.ID, strings.Join(reasons, ", "))
	}
	return b.String()
}

// statusOrder lists the canonical statuses first, then anything else
// (e.g. synthesized failure statuses) alphabetically.
func statusOrder(byStatus map[string]int) []string {
	order := []string{"ok", "refuse", "ambiguous"}
	known := map[string]bool{"ok": true, "refuse": true, "ambiguous": true}

	var extra []string
	for status := range byStatus {
		if !known[status] {
			extra = append(extra, status)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

// WriteResults writes one JSON object per result, creating parent
// directories as needed.
func WriteResults(path string, results []Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	var b strings.Builder
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal result %s: %w", r.ID, err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
