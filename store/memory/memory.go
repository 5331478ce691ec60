// Package memory provides an in-process vector store. Search embeds the
// query and runs an exact L2 scan over everything added, which is the
// right trade for tests, examples, and corpora that fit comfortably in
// RAM. Use the sqlite, pgvector, or redis stores when the corpus must
// survive the process.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/smallnest/raggate/retrieval"
	"github.com/smallnest/raggate/store"
)

// MemoryVectorStore is a slice-backed vector index guarded by an RWMutex.
// It is safe for concurrent readers and writers.
type MemoryVectorStore struct {
	embedder retrieval.Embedder

	mu      sync.RWMutex
	entries []store.Entry
}

// NewMemoryVectorStore creates an empty store. The embedder is required:
// it embeds queries at search time and must match the one used to embed
// the stored documents.
func NewMemoryVectorStore(embedder retrieval.Embedder) (*MemoryVectorStore, error) {
	if embedder == nil {
		return nil, errors.New("memory: embedder is required")
	}
	return &MemoryVectorStore{embedder: embedder}, nil
}

// Add appends documents with their embeddings, 1:1 by position.
func (s *MemoryVectorStore) Add(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("memory: %d docs with %d vectors", len(docs), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range docs {
		s.entries = append(s.entries, store.Entry{Doc: docs[i], Vector: vectors[i]})
	}
	return nil
}

// SimilaritySearchWithScore embeds the query and returns the k nearest
// documents by ascending L2 distance.
func (s *MemoryVectorStore) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]retrieval.ScoredDocument, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", retrieval.ErrEmbedding, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Rank(vec, s.entries, k), nil
}

// Len returns the number of stored documents.
func (s *MemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ store.Store = (*MemoryVectorStore)(nil)
