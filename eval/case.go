package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smallnest/raggate/retrieval"
)

// Case is one evaluation contract: a query plus the expectations its
// outcome must meet. Cases are stored one JSON object per line.
type Case struct {
	ID           string `json:"id"`
	Query        string `json:"query"`
	ExpectStatus string `json:"expect_status"`

	// ExpectSources lists filenames that must all appear among the cited
	// sources. When set it replaces the MinSources check.
	ExpectSources []string `json:"expect_sources,omitempty"`
	// ExpectSourcesAny lists filenames of which at least one must appear.
	ExpectSourcesAny []string `json:"expect_sources_any,omitempty"`
	// MinSources is the minimum number of cited sources when no explicit
	// source list is given.
	MinSources int `json:"min_sources,omitempty"`
	// ReasonContains requires the refusal reason to contain this
	// substring (case-insensitive).
	ReasonContains string `json:"reason_contains,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// caseLine accepts "question" as an alias for "query" in the JSONL input.
type caseLine struct {
	Case
	Question string `json:"question"`
}

// allowedStatuses are the valid expect_status values. The *_or_ok forms
// accept either verdict, for cases where gating is allowed to go both ways.
var allowedStatuses = map[string]bool{
	"ok":              true,
	"refuse":          true,
	"ambiguous":       true,
	"ambiguous_or_ok": true,
	"refuse_or_ok":    true,
}

// LoadCases reads and validates a JSONL case file. Blank lines are
// skipped; any malformed line fails the whole load with its line number.
func LoadCases(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases: %w", err)
	}
	defer f.Close()

	var cases []Case
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw caseLine
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("%s:%d: invalid JSON: %w", path, n, err)
		}

		c, err := normalizeCase(raw)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%s:%d: duplicate case id %q", path, n, c.ID)
		}
		seen[c.ID] = true
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cases: %w", err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases in %s", path)
	}
	return cases, nil
}

func normalizeCase(raw caseLine) (Case, error) {
	c := raw.Case
	c.ID = strings.TrimSpace(c.ID)
	c.Query = strings.TrimSpace(c.Query)
	if c.Query == "" {
		c.Query = strings.TrimSpace(raw.Question)
	}
	c.ExpectStatus = strings.TrimSpace(c.ExpectStatus)
	c.ExpectSources = cleanSourceList(c.ExpectSources)
	c.ExpectSourcesAny = cleanSourceList(c.ExpectSourcesAny)
	c.ReasonContains = strings.TrimSpace(c.ReasonContains)
	c.Notes = strings.TrimSpace(c.Notes)

	if c.ID == "" {
		return Case{}, fmt.Errorf("missing case id")
	}
	if c.Query == "" {
		return Case{}, fmt.Errorf("case %s: missing query", c.ID)
	}
	if !allowedStatuses[c.ExpectStatus] {
		return Case{}, fmt.Errorf("case %s: invalid expect_status %q", c.ID, c.ExpectStatus)
	}
	if c.MinSources < 0 {
		return Case{}, fmt.Errorf("case %s: min_sources must be >= 0, got %d", c.ID, c.MinSources)
	}
	return c, nil
}

func cleanSourceList(sources []string) []string {
	out := sources[:0]
	for _, s := range sources {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// statusMatches reports whether the actual status satisfies the expected
// one, including the compound *_or_ok forms.
func statusMatches(expect string, actual retrieval.Status) bool {
	switch expect {
	case string(actual):
		return true
	case "ambiguous_or_ok":
		return actual == retrieval.StatusAmbiguous || actual == retrieval.StatusOK
	case "refuse_or_ok":
		return actual == retrieval.StatusRefuse || actual == retrieval.StatusOK
	}
	return false
}

// citedFilenames collects the base filenames of the outcome's cited
// sources as a set.
func citedFilenames(outcome retrieval.Outcome) map[string]bool {
	set := make(map[string]bool, len(outcome.Sources))
	for _, src := range outcome.Sources {
		set[src.Filename] = true
	}
	return set
}

// sourcesSatisfied applies the case's source expectations to the outcome.
// A refusal must cite nothing regardless of the expectations.
func sourcesSatisfied(c Case, outcome retrieval.Outcome) bool {
	if outcome.Status == retrieval.StatusRefuse && len(outcome.SourceDocuments) != 0 {
		return false
	}
	actual := citedFilenames(outcome)
	if len(c.ExpectSources) > 0 {
		for _, want := range c.ExpectSources {
			if !actual[filepath.Base(want)] {
				return false
			}
		}
		return true
	}
	if len(c.ExpectSourcesAny) > 0 {
		for _, want := range c.ExpectSourcesAny {
			if actual[filepath.Base(want)] {
				return true
			}
		}
		return false
	}
	return len(outcome.Sources) >= c.MinSources
}
