package ingest

import (
	"sort"

	"github.com/smallnest/raggate/retrieval"
)

// EntityRule tags chunks that show enough evidence of one canonical
// entity. Doc-side patterns are narrower than the query-side aliases the
// extractor uses: a chunk must match at least MinHits distinct patterns
// before it earns the tag.
type EntityRule struct {
	Name     string
	MinHits  int
	Patterns []*retrieval.Pattern
}

// TagEntities writes metadata["entities"] on every document: the sorted
// set of entity names whose rules fired on the chunk content. The key is
// always set so downstream consumers can tell "tagged with nothing" from
// "never tagged".
func TagEntities(docs []retrieval.Document, rules []EntityRule) {
	for i := range docs {
		found := make([]string, 0, 2)
		for _, rule := range rules {
			if len(rule.Patterns) == 0 {
				continue
			}
			if countPatternHits(rule.Patterns, docs[i].Content) >= minHits(rule.MinHits) {
				found = append(found, rule.Name)
			}
		}
		sort.Strings(found)
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any, 1)
		}
		docs[i].Metadata["entities"] = found
	}
}

// countPatternHits counts how many distinct patterns match the text, not
// how many times each matches.
func countPatternHits(patterns []*retrieval.Pattern, text string) int {
	hits := 0
	for _, p := range patterns {
		if p.Match(text) {
			hits++
		}
	}
	return hits
}

func minHits(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
