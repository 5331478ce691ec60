package retrieval

import (
	"github.com/smallnest/raggate/log"
)

// gapExemptPageSlack is the page distance under which two near-tied chunks
// of the same file count as one topic rather than an ambiguity.
const gapExemptPageSlack = 2

// GateConfig holds the distance-gate thresholds.
type GateConfig struct {
	// FinalK is how many documents an ok verdict carries forward.
	FinalK int
	// MaxL2 is the hard relevance threshold on L2 distance.
	MaxL2 float64
	// SoftMaxL2, when greater than MaxL2, is retried if the hard
	// threshold keeps nothing. Zero disables the retry.
	SoftMaxL2 float64
	// MinKeep is the minimum number of thresholded candidates required
	// to proceed at all.
	MinKeep int
	// MinGap is the required distance gap between the top two candidates.
	// Zero disables the gap gate.
	MinGap float64
}

// GateEngine applies the distance gates that decide whether raw search
// candidates are trustworthy enough to answer from.
type GateEngine struct {
	cfg    GateConfig
	logger log.Logger
}

// NewGateEngine creates the engine. A nil logger disables gate logging.
func NewGateEngine(cfg GateConfig, logger log.Logger) *GateEngine {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &GateEngine{cfg: cfg, logger: logger}
}

// Gate filters candidates, which must be sorted by ascending distance,
// through the threshold, density, and gap gates.
//
// On StatusOK the returned slice is the final top candidates (at most
// FinalK). On StatusAmbiguous it is the full thresholded set so the
// ambiguity resolver can cluster it. On StatusRefuse it is nil.
func (g *GateEngine) Gate(scored []ScoredDocument) ([]ScoredDocument, Status) {
	if len(scored) == 0 {
		return nil, StatusRefuse
	}

	relevant := withinDistance(scored, g.cfg.MaxL2)
	if len(relevant) == 0 && g.cfg.SoftMaxL2 > g.cfg.MaxL2 {
		relevant = withinDistance(scored, g.cfg.SoftMaxL2)
		if len(relevant) > 0 {
			g.logger.Debug("soft distance threshold admitted %d candidates", len(relevant))
		}
	}

	minKeep := g.cfg.MinKeep
	if minKeep < 1 {
		minKeep = 1
	}
	if len(relevant) < minKeep {
		return nil, StatusRefuse
	}

	final := relevant
	if g.cfg.FinalK > 0 && len(final) > g.cfg.FinalK {
		final = final[:g.cfg.FinalK]
	}

	if g.cfg.MinGap > 0 && len(final) >= 2 {
		gap := final[1].Score - final[0].Score
		if gap < g.cfg.MinGap && !gapExempt(final[0].Doc, final[1].Doc) {
			g.logger.Debug("top-2 gap %.4f below %.4f, deferring to ambiguity resolution", gap, g.cfg.MinGap)
			return relevant, StatusAmbiguous
		}
	}
	return final, StatusOK
}

// gapExempt reports whether two near-tied top candidates are really the
// same topic: adjacent pages of one file, or one catalog bucket.
func gapExempt(a, b Document) bool {
	fa, fb := a.SourceName(), b.SourceName()
	if fa != "" && fa == fb {
		pa, okA := a.PageNumber()
		pb, okB := b.PageNumber()
		if okA && okB && absInt(pa-pb) <= gapExemptPageSlack {
			return true
		}
	}
	sa := SignatureFromMetadata(a.Metadata, false)
	if !sa.IsZero() && sa == SignatureFromMetadata(b.Metadata, false) {
		return true
	}
	return false
}

func withinDistance(scored []ScoredDocument, limit float64) []ScoredDocument {
	out := make([]ScoredDocument, 0, len(scored))
	for _, sd := range scored {
		if sd.Score <= limit {
			out = append(out, sd)
		}
	}
	return out
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
