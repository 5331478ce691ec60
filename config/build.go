package config

import (
	"fmt"
	"sort"

	"github.com/smallnest/raggate/ingest"
	"github.com/smallnest/raggate/retrieval"
)

// Runtime is the compiled form of a Config: every regex compiled, every
// alias table sorted, ready to hand to pipeline.New. It is immutable after
// Build and safe to share across goroutines.
type Runtime struct {
	Retrieval retrieval.RetrieverConfig
	OOD       retrieval.OODConfig
	Coverage  retrieval.CoverageConfig
	// Aliases is the query-side entity table, sorted by entity name so
	// extraction order and refusal messages are deterministic.
	Aliases []retrieval.EntityAliases
	// DocRules is the document-side tagging table for ingestion, sorted
	// by entity name.
	DocRules         []ingest.EntityRule
	MaxCharsPerChunk int
}

// Build validates the configuration and compiles every pattern list. Any
// invalid regex fails here with the config field it came from; nothing
// compiles lazily at query time.
func (c *Config) Build() (*Runtime, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	allow, err := retrieval.CompilePatterns(c.OOD.AllowPatterns)
	if err != nil {
		return nil, fmt.Errorf("ood.allow_patterns: %w", err)
	}
	deny, err := retrieval.CompilePatterns(c.OOD.DenyPatterns)
	if err != nil {
		return nil, fmt.Errorf("ood.deny_patterns: %w", err)
	}
	compare, err := retrieval.CompilePatterns(c.Coverage.CompareMarkers)
	if err != nil {
		return nil, fmt.Errorf("coverage.compare_markers: %w", err)
	}
	generic, err := retrieval.CompilePatterns(c.Coverage.GenericMarkers)
	if err != nil {
		return nil, fmt.Errorf("coverage.generic_markers: %w", err)
	}
	genericQuery, err := retrieval.CompilePatterns(c.Retrieval.GenericQueryPatterns)
	if err != nil {
		return nil, fmt.Errorf("retrieval.generic_query_patterns: %w", err)
	}
	facetQuery, err := retrieval.CompilePatterns(c.Retrieval.FacetQueryPatterns)
	if err != nil {
		return nil, fmt.Errorf("retrieval.facet_query_patterns: %w", err)
	}

	aliases, err := compileAliases(c.Entities.QueryAliases)
	if err != nil {
		return nil, err
	}
	docRules, err := compileDocRules(c.Entities.DocAliases)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Retrieval: retrieval.RetrieverConfig{
			FetchK: c.Retrieval.FetchK,
			Gate: retrieval.GateConfig{
				FinalK:    c.Retrieval.FinalK,
				MaxL2:     c.Retrieval.MaxL2,
				SoftMaxL2: c.Retrieval.SoftMaxL2,
				MinKeep:   c.Retrieval.MinKeep,
				MinGap:    c.Retrieval.MinGap,
			},
			Ambiguity: retrieval.AmbiguityConfig{
				MaxOptions:      c.Retrieval.MaxOptions,
				StrictSignature: c.Retrieval.StrictSig,
				MinGroupGap:     c.Retrieval.MinGroupGap,

				EnableEntityResolve:       c.Retrieval.EnableEntityResolve,
				RequireFullEntityCoverage: c.Retrieval.RequireFullEntityCoverage,

				KeepAmbiguousForGeneric: c.Retrieval.KeepAmbiguousForGeneric,
				GenericQuery:            genericQuery,
				FacetQuery:              facetQuery,

				EnableSignatureTieBreak: c.Retrieval.EnableSigTiebreak,
				MinSignatureSim:         c.Retrieval.MinSigSim,
				MinSignatureSimGap:      c.Retrieval.MinSigSimGap,

				EnableAnchorTieBreak: c.Retrieval.EnableAnchorTiebreak,
				MinAnchorSim:         c.Retrieval.MinAnchorSim,
				MinAnchorSimGap:      c.Retrieval.MinAnchorSimGap,
				AnchorClipChars:      c.Retrieval.AnchorClipChars,
			},
		},
		OOD: retrieval.OODConfig{
			Enabled: c.OOD.Enabled,
			Allow:   allow,
			Deny:    deny,
		},
		Coverage: retrieval.CoverageConfig{
			Enabled: c.Coverage.Enabled,
			Compare: compare,
			Generic: generic,
		},
		Aliases:          aliases,
		DocRules:         docRules,
		MaxCharsPerChunk: c.Prompt.MaxCharsPerChunk,
	}, nil
}

func (c *Config) validate() error {
	if c.Retrieval.FinalK < 1 {
		return fmt.Errorf("retrieval.final_k must be at least 1, got %d", c.Retrieval.FinalK)
	}
	if c.Retrieval.MaxOptions < 1 {
		return fmt.Errorf("retrieval.max_options must be at least 1, got %d", c.Retrieval.MaxOptions)
	}
	if c.Splitter.ChunkSize > 0 && c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("splitter.chunk_overlap %d must be smaller than splitter.chunk_size %d",
			c.Splitter.ChunkOverlap, c.Splitter.ChunkSize)
	}
	switch c.Store.Backend {
	case "memory", "sqlite", "pgvector", "redis":
	default:
		return fmt.Errorf("store.backend %q is not one of memory, sqlite, pgvector, redis", c.Store.Backend)
	}
	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		return fmt.Errorf("embedding.provider %q is not one of openai, hash", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case "ollama", "openai", "none", "":
	default:
		return fmt.Errorf("llm.provider %q is not one of ollama, openai, none", c.LLM.Provider)
	}
	return nil
}

func compileAliases(table map[string][]string) ([]retrieval.EntityAliases, error) {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]retrieval.EntityAliases, 0, len(names))
	for _, name := range names {
		patterns, err := retrieval.CompilePatterns(table[name])
		if err != nil {
			return nil, fmt.Errorf("entities.query_aliases.%s: %w", name, err)
		}
		out = append(out, retrieval.EntityAliases{Name: name, Patterns: patterns})
	}
	return out, nil
}

func compileDocRules(table map[string]DocAlias) ([]ingest.EntityRule, error) {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ingest.EntityRule, 0, len(names))
	for _, name := range names {
		patterns, err := retrieval.CompilePatterns(table[name].Patterns)
		if err != nil {
			return nil, fmt.Errorf("entities.doc_aliases.%s: %w", name, err)
		}
		out = append(out, ingest.EntityRule{
			Name:     name,
			MinHits:  table[name].MinHits,
			Patterns: patterns,
		})
	}
	return out, nil
}
