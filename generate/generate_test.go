package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type mockLLM struct {
	answer   string
	err      error
	messages []llms.MessageContent
}

func (m *mockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.answer}},
	}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return m.answer, m.err
}

func TestLangChainModel_BuildsGroundedPrompt(t *testing.T) {
	mock := &mockLLM{answer: "QoS 1 retries until acknowledged."}
	model, err := NewLangChainModel(mock, nil)
	require.NoError(t, err)

	answer, err := model.Generate(context.Background(), "what does qos 1 guarantee?", "[mqtt.pdf, page 3]\nQoS 1 content")
	require.NoError(t, err)
	assert.Equal(t, "QoS 1 retries until acknowledged.", answer)

	require.Len(t, mock.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, mock.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, mock.messages[1].Role)

	human := mock.messages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, human, "Context:\n[mqtt.pdf, page 3]")
	assert.Contains(t, human, "Question:\nwhat does qos 1 guarantee?")
}

func TestLangChainModel_WrapsBackendError(t *testing.T) {
	mock := &mockLLM{err: errors.New("connection refused")}
	model, err := NewLangChainModel(mock, nil)
	require.NoError(t, err)

	_, err = model.Generate(context.Background(), "q", "ctx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failed")
}

func TestLangChainModel_EmptyChoices(t *testing.T) {
	model, err := NewLangChainModel(&emptyLLM{}, nil)
	require.NoError(t, err)

	_, err = model.Generate(context.Background(), "q", "ctx")
	assert.Error(t, err)
}

func TestNewLangChainModel_RequiresModel(t *testing.T) {
	_, err := NewLangChainModel(nil, nil)
	assert.Error(t, err)
}

type emptyLLM struct{}

func (e *emptyLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func (e *emptyLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}
