package retrieval

import (
	"strings"
)

// EntityAliases maps one canonical entity name to the alias patterns that
// signal it in query text.
type EntityAliases struct {
	Name     string
	Patterns []*Pattern
}

// EntityExtractor finds canonical entity mentions in queries. Matches keep
// the declaration order of the alias table so downstream messages stay
// stable across runs.
type EntityExtractor struct {
	aliases []EntityAliases
}

// NewEntityExtractor creates an extractor over the given alias table.
func NewEntityExtractor(aliases []EntityAliases) *EntityExtractor {
	return &EntityExtractor{aliases: aliases}
}

// Extract returns the canonical entity names mentioned in the query.
// A nil extractor extracts nothing.
func (e *EntityExtractor) Extract(query string) []string {
	if e == nil {
		return nil
	}
	q := strings.ToLower(query)
	var found []string
	for _, alias := range e.aliases {
		if anyPatternMatches(alias.Patterns, q) {
			found = append(found, alias.Name)
		}
	}
	return found
}
