package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		FetchK: 10,
		Gate:   testGateConfig(),
		Ambiguity: AmbiguityConfig{
			MaxOptions: 3,
		},
	}
}

func TestSafeFetchK(t *testing.T) {
	// Floor is final_k + 2*max_options + 2.
	assert.Equal(t, 12, SafeFetchK(5, 4, 3))
	assert.Equal(t, 40, SafeFetchK(40, 4, 3))
	assert.Equal(t, 7, SafeFetchK(0, 1, 2))
}

func TestNewRetriever_Validation(t *testing.T) {
	cfg := testRetrieverConfig()

	_, err := NewRetriever(nil, cfg, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector index is required")

	cfg.Gate.FinalK = 0
	_, err = NewRetriever(&stubIndex{}, cfg, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final_k")
}

func TestRetriever_WidensFetchK(t *testing.T) {
	index := &stubIndex{scored: []ScoredDocument{
		{Doc: newDoc("a", "a.pdf", 1, nil), Score: 0.3},
	}}
	cfg := testRetrieverConfig()
	cfg.FetchK = 1
	r, err := NewRetriever(index, cfg, nil, nil, nil)
	require.NoError(t, err)

	r.Step(context.Background(), State{Input: "q"})
	assert.Equal(t, SafeFetchK(1, cfg.Gate.FinalK, cfg.Ambiguity.MaxOptions), index.gotK)
}

func TestRetriever_BackendErrors(t *testing.T) {
	cfg := testRetrieverConfig()

	t.Run("store failure", func(t *testing.T) {
		index := &stubIndex{err: errors.New("connection refused")}
		r, err := NewRetriever(index, cfg, nil, nil, nil)
		require.NoError(t, err)
		out := r.Step(context.Background(), State{Input: "q"})
		assert.Equal(t, StatusRefuse, out.Status)
		assert.Equal(t, "Backend error: vector store", out.RefusalReason)
	})

	t.Run("embedding failure reported separately", func(t *testing.T) {
		index := &stubIndex{err: fmt.Errorf("embed query: %w", ErrEmbedding)}
		r, err := NewRetriever(index, cfg, nil, nil, nil)
		require.NoError(t, err)
		out := r.Step(context.Background(), State{Input: "q"})
		assert.Equal(t, StatusRefuse, out.Status)
		assert.Equal(t, "Backend error: embedding", out.RefusalReason)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		index := &stubIndex{err: ctx.Err()}
		r, err := NewRetriever(index, cfg, nil, nil, nil)
		require.NoError(t, err)
		out := r.Step(ctx, State{Input: "q"})
		assert.Equal(t, ReasonCancelled, out.RefusalReason)
	})
}

func TestRetriever_EmptyResult(t *testing.T) {
	r, err := NewRetriever(&stubIndex{}, testRetrieverConfig(), nil, nil, nil)
	require.NoError(t, err)
	out := r.Step(context.Background(), State{Input: "q"})
	assert.Equal(t, StatusRefuse, out.Status)
	assert.Equal(t, ReasonNoRelevantDocs, out.RefusalReason)
}

func TestRetriever_ResortsUnorderedCandidates(t *testing.T) {
	// Stores promise ascending distance, but the gates re-sort defensively.
	index := &stubIndex{scored: []ScoredDocument{
		{Doc: newDoc("far", "a.pdf", 1, nil), Score: 0.50},
		{Doc: newDoc("near", "a.pdf", 2, nil), Score: 0.20},
	}}
	r, err := NewRetriever(index, testRetrieverConfig(), nil, nil, nil)
	require.NoError(t, err)
	out := r.Step(context.Background(), State{Input: "q"})
	require.Equal(t, StatusOK, out.Status)
	assert.Equal(t, "near", out.Docs[0].Content)
	assert.Equal(t, 0.20, out.Scored[0].Score)
}

func TestRetriever_SkipsDecidedState(t *testing.T) {
	index := &stubIndex{}
	r, err := NewRetriever(index, testRetrieverConfig(), nil, nil, nil)
	require.NoError(t, err)
	out := r.Step(context.Background(), State{Input: "q", SkipLLM: true, Status: StatusRefuse})
	assert.Equal(t, StatusRefuse, out.Status)
	assert.Zero(t, index.gotK)
}
