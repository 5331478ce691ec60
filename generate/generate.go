package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/raggate/log"
)

// Generator produces a grounded answer from the retrieved context block.
// Implementations must answer only from the context; the pipeline handles
// refusals before generation is ever reached.
type Generator interface {
	Generate(ctx context.Context, query, docContext string) (string, error)
}

// LangChainModel adapts a langchaingo llms.Model to the Generator seam.
type LangChainModel struct {
	model       llms.Model
	temperature float64
	logger      log.Logger
}

// NewLangChainModel wraps the given model. Temperature follows the
// deterministic-answers default of zero.
func NewLangChainModel(model llms.Model, logger log.Logger) (*LangChainModel, error) {
	if model == nil {
		return nil, errors.New("generate: llm model is required")
	}
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &LangChainModel{model: model, temperature: 0, logger: logger}, nil
}

// WithTemperature overrides the sampling temperature.
func (m *LangChainModel) WithTemperature(t float64) *LangChainModel {
	m.temperature = t
	return m
}

// Generate renders the grounded-QA prompt and returns the model's raw text.
// Callers run the result through Clean before surfacing it.
func (m *LangChainModel) Generate(ctx context.Context, query, docContext string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, BuildPrompt(query, docContext)),
	}

	response, err := m.model.GenerateContent(ctx, messages, llms.WithTemperature(m.temperature))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("generation returned no choices")
	}
	answer := response.Choices[0].Content
	m.logger.Debug("generated %d chars for query %q", len(answer), query)
	return answer, nil
}
