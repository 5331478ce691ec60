package retrieval

import (
	"strings"

	"github.com/smallnest/raggate/log"
)

// EntityAugmenter tops up selected documents so every entity the query
// names is represented in the cited set, without exceeding the final
// document budget. It never displaces the anchor document and only ever
// adds candidates that close a coverage gap.
type EntityAugmenter struct {
	extractor *EntityExtractor
	finalK    int
	logger    log.Logger
}

// NewEntityAugmenter creates the augmenter. finalK is the document budget
// shared with the gate engine.
func NewEntityAugmenter(extractor *EntityExtractor, finalK int, logger log.Logger) *EntityAugmenter {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &EntityAugmenter{extractor: extractor, finalK: finalK, logger: logger}
}

// Augment rebalances state.Docs using the scored candidates still on the
// state. With no uncovered entities it only trims to the budget.
func (a *EntityAugmenter) Augment(state State) State {
	if state.SkipLLM || state.Status != StatusOK {
		return state
	}
	entities := a.extractor.Extract(state.Input)
	if len(entities) == 0 {
		return state
	}
	picked := state.Docs
	if len(picked) == 0 {
		return state
	}

	finalK := a.finalK
	if finalK < 1 {
		finalK = 1
	}

	missing := missingEntities(entities, picked)
	if len(missing) == 0 {
		if len(picked) > finalK {
			state.Docs = picked[:finalK]
		}
		return state
	}

	if len(picked) >= finalK {
		room := len(missing)
		if room < 1 {
			room = 1
		}
		keep := finalK - room
		if keep < 1 {
			keep = 1
		}
		picked = picked[:keep]
		missing = missingEntities(entities, picked)
	}

	seen := make(map[docKey]struct{}, len(picked))
	for _, d := range picked {
		seen[keyOf(d)] = struct{}{}
	}
	for _, sd := range state.Scored {
		if len(missing) == 0 || len(picked) >= finalK {
			break
		}
		key := keyOf(sd.Doc)
		if _, ok := seen[key]; ok {
			continue
		}
		if !mentionsAny(sd.Doc, missing) {
			continue
		}
		picked = append(picked, sd.Doc)
		seen[key] = struct{}{}
		missing = missingEntities(entities, picked)
	}
	if len(missing) > 0 {
		a.logger.Debug("augmenter left entities uncovered: %s", strings.Join(missing, ", "))
	}

	state.Docs = picked
	return state
}

// missingEntities returns the query entities absent from the docs' union,
// preserving query order.
func missingEntities(queryEntities []string, docs []Document) []string {
	covered := make(map[string]struct{})
	for _, d := range docs {
		for _, e := range d.Entities() {
			covered[e] = struct{}{}
		}
	}
	var missing []string
	for _, e := range queryEntities {
		if _, ok := covered[e]; !ok {
			missing = append(missing, e)
		}
	}
	return missing
}

func mentionsAny(d Document, entities []string) bool {
	if len(entities) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		want[e] = struct{}{}
	}
	for _, e := range d.Entities() {
		if _, ok := want[e]; ok {
			return true
		}
	}
	return false
}
