package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	openAIDefaultModel = "gpt-4o-mini"
	openAISystemPrompt = "You are a careful SRE assistant. Reply with a single JSON object."
)

// OpenAI talks to the chat completions API, or any server compatible with it.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the secondary cloud backend. baseURL may point at an
// OpenAI-compatible gateway.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	if strings.TrimSpace(model) == "" {
		model = openAIDefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Name() string  { return NameOpenAI }
func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) RequestTriage(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAISystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
