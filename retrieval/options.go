package retrieval

import (
	"sort"
	"strings"
)

// BuildOptions turns the leading buckets into caller-facing options. Each
// option is anchored by its bucket's closest document and topped up with
// distinct companions from the full candidate list, so the option previews
// what an answer drawn from that bucket would cite.
func BuildOptions(buckets []Bucket, scored []ScoredDocument, finalK, maxOptions int) []Option {
	if maxOptions > 0 && len(buckets) > maxOptions {
		buckets = buckets[:maxOptions]
	}
	need := finalK
	if need < 1 {
		need = 1
	}
	need--

	options := make([]Option, 0, len(buckets))
	for i, b := range buckets {
		anchor := b.Anchor().Doc
		companions := selectDistinctDocs(anchor, prioritizeForAnchor(anchor, scored), need)
		docs := make([]Document, 0, len(companions)+1)
		docs = append(docs, anchor)
		docs = append(docs, companions...)
		options = append(options, Option{
			ID:           i + 1,
			Docs:         docs,
			Sources:      CollectSources(docs),
			BestDistance: b.Best(),
		})
	}
	return options
}

// prioritizeForAnchor orders companion candidates same-file-first so an
// option's docs stay topically coherent with its anchor.
func prioritizeForAnchor(anchor Document, scored []ScoredDocument) []Document {
	anchorFile := anchor.SourceName()
	same := make([]Document, 0, len(scored))
	other := make([]Document, 0, len(scored))
	for _, sd := range scored {
		if anchorFile != "" && sd.Doc.SourceName() == anchorFile {
			same = append(same, sd.Doc)
		} else {
			other = append(other, sd.Doc)
		}
	}
	return append(same, other...)
}

// selectDistinctDocs picks up to need companions for an anchor. It sweeps
// the candidates three times: first taking chunks from unseen pages, then
// from unseen files, then anything left. A (filename, page) chunk is never
// picked twice, and the anchor's own chunk is excluded from the start.
func selectDistinctDocs(anchor Document, candidates []Document, need int) []Document {
	if need <= 0 {
		return nil
	}
	anchorKey := keyOf(anchor)
	seenFiles := map[string]struct{}{anchorKey.file: {}}
	seenPages := map[string]struct{}{anchorKey.page: {}}
	seenKeys := map[docKey]struct{}{anchorKey: {}}

	picked := make([]Document, 0, need)
	for phase := 0; phase < 3; phase++ {
		for _, d := range candidates {
			if len(picked) >= need {
				return picked
			}
			key := keyOf(d)
			if _, ok := seenKeys[key]; ok {
				continue
			}
			switch phase {
			case 0:
				if _, ok := seenPages[key.page]; ok {
					continue
				}
			case 1:
				if _, ok := seenFiles[key.file]; ok {
					continue
				}
			}
			picked = append(picked, d)
			seenKeys[key] = struct{}{}
			seenFiles[key.file] = struct{}{}
			seenPages[key.page] = struct{}{}
		}
	}
	return picked
}

// DeduplicateOptions drops options whose source sets are identical and
// renumbers the survivors so IDs stay contiguous from 1.
func DeduplicateOptions(options []Option) []Option {
	seen := make(map[string]struct{}, len(options))
	out := make([]Option, 0, len(options))
	for _, opt := range options {
		key := sourceSetKey(opt.Sources)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, opt)
	}
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

func sourceSetKey(sources []SourceRef) string {
	pairs := make([]string, 0, len(sources))
	for _, s := range sources {
		pairs = append(pairs, s.Filename+"\x00"+s.Page)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\x01")
}
