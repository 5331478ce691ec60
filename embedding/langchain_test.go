package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLangChainEmbedder implements embeddings.Embedder with canned output.
type fakeLangChainEmbedder struct {
	perText []float32
	short   bool
	err     error
}

func (f *fakeLangChainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short && n > 0 {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = f.perText
	}
	return out, nil
}

func (f *fakeLangChainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.perText, nil
}

func TestLangChain_EmbedQueryAndBatch(t *testing.T) {
	fake := &fakeLangChainEmbedder{perText: []float32{0.1, 0.2}}
	lc, err := NewLangChain(fake, "fake")
	require.NoError(t, err)

	vec, err := lc.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)

	vecs, err := lc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	vecs, err = lc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestLangChain_LengthMismatch(t *testing.T) {
	fake := &fakeLangChainEmbedder{perText: []float32{0.1}, short: true}
	lc, err := NewLangChain(fake, "fake")
	require.NoError(t, err)

	_, err = lc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 texts")
}

func TestLangChain_WrapsErrors(t *testing.T) {
	fake := &fakeLangChainEmbedder{err: errors.New("quota exceeded")}
	lc, err := NewLangChain(fake, "fake")
	require.NoError(t, err)

	_, err = lc.EmbedQuery(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")

	_, err = lc.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed batch")
}

func TestLangChain_Identity(t *testing.T) {
	lc, err := NewLangChain(&fakeLangChainEmbedder{}, "")
	require.NoError(t, err)
	assert.Equal(t, "langchain", lc.Identity())

	_, err = NewLangChain(nil, "x")
	assert.Error(t, err)
}
