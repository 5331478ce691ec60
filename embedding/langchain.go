package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/smallnest/raggate/retrieval"
)

// LangChain adapts any langchaingo embedder (OpenAI, Ollama, HuggingFace
// inference, ...) to the retrieval.Embedder seam. The identity tag keys
// vector caches, so give two differently-configured embedders different
// tags.
type LangChain struct {
	embedder embeddings.Embedder
	identity string
}

// NewLangChain wraps the given embedder under the given identity tag.
func NewLangChain(embedder embeddings.Embedder, identity string) (*LangChain, error) {
	if embedder == nil {
		return nil, errors.New("embedding: langchain embedder is required")
	}
	if identity == "" {
		identity = "langchain"
	}
	return &LangChain{embedder: embedder, identity: identity}, nil
}

// EmbedQuery embeds a single query text.
func (l *LangChain) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := l.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// EmbedBatch embeds texts in order, 1:1 with the input.
func (l *LangChain) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := l.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// Identity returns the cache identity tag.
func (l *LangChain) Identity() string { return l.identity }

var _ retrieval.Embedder = (*LangChain)(nil)
