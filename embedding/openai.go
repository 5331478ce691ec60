package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smallnest/raggate/retrieval"
)

// OpenAIOptions configures the OpenAI embedding client.
type OpenAIOptions struct {
	APIKey string
	// Model defaults to text-embedding-3-small.
	Model string
	// BaseURL overrides the API endpoint for proxies and compatible
	// servers.
	BaseURL string
}

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAI creates the client. The API key is required.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, errors.New("embedding: openai api key is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	model := openai.EmbeddingModel(opts.Model)
	if opts.Model == "" {
		model = openai.SmallEmbedding3
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// EmbedQuery embeds one query text.
func (o *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one API call, returning vectors 1:1 with the
// input order.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Identity returns "openai:<model>".
func (o *OpenAI) Identity() string { return "openai:" + string(o.model) }

var _ retrieval.Embedder = (*OpenAI)(nil)
