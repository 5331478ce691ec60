package retrieval

import (
	"strings"

	"github.com/smallnest/raggate/log"
)

// CoverageConfig controls the entity coverage gate.
type CoverageConfig struct {
	Enabled bool
	// Compare patterns mark comparison queries ("X vs Y"). The gate
	// checks them once they name at least two entities.
	Compare []*Pattern
	// Generic patterns mark broad queries. The gate checks them as soon
	// as they name one entity.
	Generic []*Pattern
}

// CoverageGate refuses comparison and broad queries whose named entities
// are not all present in the selected documents. An answer to "MQTT vs
// Kafka" drawn from MQTT-only chunks reads fluently and is wrong; refusing
// is the better failure.
type CoverageGate struct {
	cfg       CoverageConfig
	extractor *EntityExtractor
	logger    log.Logger
}

// NewCoverageGate creates the gate. A nil logger disables gate logging.
func NewCoverageGate(cfg CoverageConfig, extractor *EntityExtractor, logger log.Logger) *CoverageGate {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &CoverageGate{cfg: cfg, extractor: extractor, logger: logger}
}

// Check refuses when the selected documents do not mention every entity the
// query names. Missing entities are listed in the refusal reason in alias
// declaration order.
func (g *CoverageGate) Check(state State) State {
	if state.SkipLLM || !g.cfg.Enabled {
		return state
	}
	query := strings.ToLower(strings.TrimSpace(state.Input))
	if query == "" {
		return state.Refuse(ReasonEmptyQuery)
	}
	if len(state.Docs) == 0 {
		// The policy stage owns the empty-docs verdict.
		return state
	}

	isCompare := anyPatternMatches(g.cfg.Compare, query)
	isGeneric := anyPatternMatches(g.cfg.Generic, query)
	if !isCompare && !isGeneric {
		return state
	}

	entities := g.extractor.Extract(query)
	covered := make(map[string]struct{})
	for _, d := range state.Docs {
		for _, e := range d.Entities() {
			covered[e] = struct{}{}
		}
	}
	var missing []string
	for _, e := range entities {
		if _, ok := covered[e]; !ok {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return state
	}

	if isCompare && len(entities) >= 2 {
		g.logger.Debug("comparison query missing entities: %s", strings.Join(missing, ", "))
		return state.Refuse(MissingCoverageReason(missing))
	}
	if isGeneric && len(entities) >= 1 {
		g.logger.Debug("broad query missing entities: %s", strings.Join(missing, ", "))
		return state.Refuse(MissingCoverageReason(missing))
	}
	return state
}
