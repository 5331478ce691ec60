package retrieval

import (
	"strings"

	"github.com/smallnest/raggate/log"
)

// OODConfig controls the out-of-domain gate.
type OODConfig struct {
	Enabled bool
	Allow   []*Pattern
	Deny    []*Pattern
}

// OODGate rejects queries outside the corpus domain before any retrieval
// work happens. Deny patterns win over allow patterns, and when an allow
// list is present the query must match at least one entry.
type OODGate struct {
	cfg    OODConfig
	logger log.Logger
}

// NewOODGate creates the gate. A nil logger disables gate logging.
func NewOODGate(cfg OODConfig, logger log.Logger) *OODGate {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &OODGate{cfg: cfg, logger: logger}
}

// Check refuses empty and out-of-domain queries, passing everything else
// through untouched.
func (g *OODGate) Check(state State) State {
	if state.SkipLLM {
		return state
	}
	query := strings.ToLower(strings.TrimSpace(state.Input))
	if query == "" {
		return state.Refuse(ReasonEmptyQuery)
	}
	if !g.cfg.Enabled {
		return state
	}
	if anyPatternMatches(g.cfg.Deny, query) {
		g.logger.Debug("query denied by out-of-domain pattern")
		return state.Refuse(ReasonOutOfDomain)
	}
	if len(g.cfg.Allow) > 0 && !anyPatternMatches(g.cfg.Allow, query) {
		g.logger.Debug("query matched no allow pattern")
		return state.Refuse(ReasonOutOfDomain)
	}
	return state
}
