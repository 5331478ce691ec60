package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// cosineSimilarity computes cosine similarity over float32 vectors using
// float64 accumulators. Zero-norm or mismatched inputs yield 0.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sigVectorCache memoizes signature-text embeddings across queries. The
// signature space is one entry per catalog bucket, so entries live for the
// process lifetime. Keys carry the embedder identity to prevent reuse
// across models.
type sigVectorCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

func newSigVectorCache() *sigVectorCache {
	return &sigVectorCache{vectors: make(map[string][]float32)}
}

func (c *sigVectorCache) lookup(identity, text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vectors[identity+"\x00"+text]
	return v, ok
}

func (c *sigVectorCache) store(identity, text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[identity+"\x00"+text] = vec
}

// embedSignatureTexts resolves signature vectors through the cache, sending
// only the misses to the embedder in a single batch.
func embedSignatureTexts(ctx context.Context, embedder Embedder, cache *sigVectorCache, texts []string) ([][]float32, error) {
	identity := embedder.Identity()
	out := make([][]float32, len(texts))
	var missing []int
	for i, t := range texts {
		if v, ok := cache.lookup(identity, t); ok {
			out[i] = v
		} else {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := embedder.EmbedBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
	}
	for j, i := range missing {
		out[i] = vecs[j]
		cache.store(identity, texts[i], vecs[j])
	}
	return out, nil
}

// tiePick is the outcome of a similarity tie-break: the winning index plus
// the two similarities that justified it.
type tiePick struct {
	index     int
	bestSim   float64
	secondSim float64
}

// pickBest ranks similarities descending and accepts the leader only when
// it clears the floor and beats the runner-up by at least the gap. With a
// single candidate the runner-up similarity is -1.
func pickBest(sims []float64, floor, gap float64) *tiePick {
	if len(sims) == 0 {
		return nil
	}
	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sims[order[i]] > sims[order[j]]
	})
	best := order[0]
	pick := tiePick{index: best, bestSim: sims[best], secondSim: -1.0}
	if len(order) > 1 {
		pick.secondSim = sims[order[1]]
	}
	if pick.bestSim >= floor && pick.bestSim-pick.secondSim >= gap {
		return &pick
	}
	return nil
}

// pickBySignature embeds the query and the rendered bucket signatures, then
// accepts the most similar signature under the floor-and-gap rule.
func pickBySignature(ctx context.Context, embedder Embedder, cache *sigVectorCache, query string, sigs []Signature, floor, gap float64) (*tiePick, error) {
	texts := make([]string, len(sigs))
	for i, s := range sigs {
		texts[i] = s.Render()
	}
	queryVec, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	sigVecs, err := embedSignatureTexts(ctx, embedder, cache, texts)
	if err != nil {
		return nil, err
	}
	sims := make([]float64, len(sigVecs))
	for i, v := range sigVecs {
		sims[i] = cosineSimilarity(queryVec, v)
	}
	return pickBest(sims, floor, gap), nil
}

// pickByAnchor embeds the query together with each bucket's clipped anchor
// content in one batch and accepts the most similar anchor under the
// floor-and-gap rule.
func pickByAnchor(ctx context.Context, embedder Embedder, query string, anchors []string, clip int, floor, gap float64) (*tiePick, error) {
	inputs := make([]string, 0, len(anchors)+1)
	inputs = append(inputs, query)
	for _, a := range anchors {
		inputs = append(inputs, clipRunes(strings.TrimSpace(a), clip))
	}
	vecs, err := embedder.EmbedBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(inputs))
	}
	queryVec := vecs[0]
	sims := make([]float64, len(anchors))
	for i, v := range vecs[1:] {
		sims[i] = cosineSimilarity(queryVec, v)
	}
	return pickBest(sims, floor, gap), nil
}
