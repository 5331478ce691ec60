package retrieval

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Pattern is a case-insensitive regular expression used by the query gates.
// It wraps regexp2 because gate patterns rely on lookaheads, which the
// standard library engine rejects.
type Pattern struct {
	expr string
	re   *regexp2.Regexp
}

// CompilePattern compiles a single gate pattern.
func CompilePattern(expr string) (*Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return &Pattern{expr: expr, re: re}, nil
}

// MustCompilePattern is CompilePattern that panics on error. Reserved for
// fixed built-in pattern tables.
func MustCompilePattern(expr string) *Pattern {
	p, err := CompilePattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// CompilePatterns compiles a list of gate patterns, skipping blank entries.
func CompilePatterns(exprs []string) ([]*Pattern, error) {
	out := make([]*Pattern, 0, len(exprs))
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		p, err := CompilePattern(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Match reports whether the pattern matches anywhere in text.
func (p *Pattern) Match(text string) bool {
	ok, err := p.re.MatchString(text)
	return err == nil && ok
}

// String returns the original expression.
func (p *Pattern) String() string {
	return p.expr
}

func anyPatternMatches(patterns []*Pattern, text string) bool {
	for _, p := range patterns {
		if p.Match(text) {
			return true
		}
	}
	return false
}
