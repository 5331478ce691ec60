package retrieval

import (
	"context"
	"errors"
)

// newDoc builds a corpus chunk for tests. tags land directly in metadata,
// so callers pass catalog fields like "domain" or "product" as needed.
func newDoc(content, source string, page any, tags map[string]any, entities ...string) Document {
	md := map[string]any{}
	if source != "" {
		md["source"] = source
	}
	if page != nil {
		md["page"] = page
	}
	for k, v := range tags {
		md[k] = v
	}
	if len(entities) > 0 {
		md["entities"] = entities
	}
	return Document{Content: content, Metadata: md}
}

func mustPatterns(exprs ...string) []*Pattern {
	out, err := CompilePatterns(exprs)
	if err != nil {
		panic(err)
	}
	return out
}

// stubEmbedder returns canned vectors keyed by exact input text. Unknown
// texts get a fixed off-axis vector so cosine comparisons stay defined.
type stubEmbedder struct {
	id      string
	vectors map[string][]float32
	fail    bool
	queries int
	batches int
}

func (e *stubEmbedder) vec(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return []float32{0, 0, 1}
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("stub embedder down")
	}
	e.queries++
	return e.vec(text), nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("stub embedder down")
	}
	e.batches++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vec(t)
	}
	return out, nil
}

func (e *stubEmbedder) Identity() string {
	if e.id == "" {
		return "stub"
	}
	return e.id
}

// stubIndex serves a fixed scored list and records the requested k.
type stubIndex struct {
	scored []ScoredDocument
	err    error
	gotK   int
}

func (s *stubIndex) SimilaritySearchWithScore(_ context.Context, _ string, k int) ([]ScoredDocument, error) {
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	return s.scored, nil
}
