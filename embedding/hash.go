package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/smallnest/raggate/retrieval"
)

// defaultHashDim keeps hash vectors small; recall quality is not the
// point of this embedder.
const defaultHashDim = 64

// Hash is a deterministic, dependency-free embedder for tests, examples
// and offline smoke runs. Tokens are hashed into a fixed number of
// buckets and the bucket counts are L2-normalized, so texts sharing
// vocabulary land near each other while unrelated texts stay far apart.
// It needs no network and always returns the same vector for the same
// text.
type Hash struct {
	dim int
}

// NewHash creates a hash embedder with the given dimension (defaulted
// when non-positive).
func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = defaultHashDim
	}
	return &Hash{dim: dim}
}

// EmbedQuery embeds one text.
func (h *Hash) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

// EmbedBatch embeds texts in order.
func (h *Hash) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embed(t)
	}
	return out, nil
}

// Identity returns "hash-<dim>".
func (h *Hash) Identity() string { return fmt.Sprintf("hash-%d", h.dim) }

func (h *Hash) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, token := range tokenize(text) {
		hasher := fnv.New32a()
		hasher.Write([]byte(token))
		vec[int(hasher.Sum32())%h.dim]++
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ retrieval.Embedder = (*Hash)(nil)
