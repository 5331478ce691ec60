package retrieval

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// NormalizePage renders a raw page metadata value for display. Missing and
// blank values become "n/a"; integral floats from JSON round-trips render
// as plain integers.
func NormalizePage(page any) string {
	switch v := page.(type) {
	case nil:
		return "n/a"
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.Itoa(int(v))
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return NormalizePage(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "n/a"
		}
		return s
	default:
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s == "" {
			return "n/a"
		}
		return s
	}
}

func sourceFilename(doc Document) string {
	if name := doc.SourceName(); name != "" {
		return name
	}
	return "unknown"
}

// CollectSources extracts deduplicated citations from docs, sorted by
// (filename, page) for stable presentation.
func CollectSources(docs []Document) []SourceRef {
	seen := make(map[SourceRef]struct{}, len(docs))
	out := make([]SourceRef, 0, len(docs))
	for _, d := range docs {
		ref := SourceRef{Filename: sourceFilename(d), Page: d.PageLabel()}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Filename != out[j].Filename {
			return out[i].Filename < out[j].Filename
		}
		return out[i].Page < out[j].Page
	})
	return out
}

// FormatContext renders documents into the prompt context block. Each chunk
// is clipped to maxCharsPerChunk and headed by its citation.
func FormatContext(docs []Document, maxCharsPerChunk int) string {
	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		header := fmt.Sprintf("[%s, page %s]", sourceFilename(d), d.PageLabel())
		blocks = append(blocks, header+"\n"+clipRunes(d.Content, maxCharsPerChunk))
	}
	return strings.Join(blocks, "\n\n")
}

func clipRunes(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	r := []rune(text)
	if len(r) <= maxChars {
		return text
	}
	return string(r[:maxChars])
}

// BuildOutcome flattens terminal pipeline state into the caller-facing
// outcome. Source documents are exposed only on ok outcomes.
func BuildOutcome(s State) Outcome {
	docs := s.Docs
	if s.Status != StatusOK || docs == nil {
		docs = []Document{}
	}
	return Outcome{
		Input:           s.Input,
		Status:          s.Status,
		Answer:          s.Answer,
		RefusalReason:   s.RefusalReason,
		SourceDocuments: docs,
		Sources:         CollectSources(docs),
		Options:         s.Options,
		SelectedOption:  s.SelectedOption,
	}
}
