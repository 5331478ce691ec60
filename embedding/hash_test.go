package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func TestHash_Deterministic(t *testing.T) {
	h := NewHash(64)
	a, err := h.EmbedQuery(context.Background(), "mqtt qos one delivery")
	require.NoError(t, err)
	b, err := h.EmbedQuery(context.Background(), "mqtt qos one delivery")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHash_UnitNorm(t *testing.T) {
	h := NewHash(64)
	vec, err := h.EmbedQuery(context.Background(), "retained messages persist per topic")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestHash_SharedVocabularyIsCloser(t *testing.T) {
	h := NewHash(128)
	ctx := context.Background()
	query, err := h.EmbedQuery(ctx, "mqtt qos guarantees")
	require.NoError(t, err)
	related, err := h.EmbedQuery(ctx, "qos levels in mqtt")
	require.NoError(t, err)
	unrelated, err := h.EmbedQuery(ctx, "kafka consumer offsets")
	require.NoError(t, err)

	assert.Less(t, l2(query, related), l2(query, unrelated))
}

func TestHash_BatchKeepsOrder(t *testing.T) {
	h := NewHash(32)
	texts := []string{"first text", "second text", "third text"}
	vecs, err := h.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	for i, text := range texts {
		single, err := h.EmbedQuery(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, vecs[i])
	}
}

func TestHash_EmptyTextIsZeroVector(t *testing.T) {
	h := NewHash(16)
	vec, err := h.EmbedQuery(context.Background(), "  ")
	require.NoError(t, err)
	require.Len(t, vec, 16)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestHash_Identity(t *testing.T) {
	assert.Equal(t, "hash-64", NewHash(0).Identity())
	assert.Equal(t, "hash-128", NewHash(128).Identity())
}
