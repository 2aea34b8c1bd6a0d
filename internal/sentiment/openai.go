package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIRefiner asks a chat model to rescore post polarity.
type OpenAIRefiner struct {
	client openAIChatClient
	model  string
}

// NewOpenAIRefiner returns nil when no API key is configured.
func NewOpenAIRefiner(apiKey string, model string) *OpenAIRefiner {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIRefiner{
		client: &openAIClient{client: client},
		model:  model,
	}
}

func (r *OpenAIRefiner) Refine(ctx context.Context, texts []string) (map[int]float64, error) {
	if r == nil || r.client == nil || len(texts) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, text := range texts {
		sb.WriteString(fmt.Sprintf("id=%d\ntext=%s\n\n", i, strings.TrimSpace(text)))
	}

	systemPrompt := "You score Bitcoin market sentiment of short posts. Return ONLY a JSON array. Each object requires: id (int), polarity (-1..1). No markdown."
	completion, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Posts:\n" + sb.String()),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty refiner completion")
	}

	raw := trimCodeFence(completion.Choices[0].Message.Content)
	var parsed []struct {
		ID       int     `json:"id"`
		Polarity float64 `json:"polarity"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse refiner json: %w", err)
	}

	out := make(map[int]float64, len(parsed))
	for _, row := range parsed {
		if row.ID < 0 || row.ID >= len(texts) {
			continue
		}
		out[row.ID] = clamp(row.Polarity, -1, 1)
	}
	return out, nil
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "```"))
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSpace(strings.TrimSuffix(v, "```"))
	}
	return v
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
