package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

var _ contractx.TextCapability = (*OpenAI)(nil)

type OpenAIConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAI calls the chat completions endpoint directly through openai-go.
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAI(client *openai.Client, cfg OpenAIConfig) (*OpenAI, error) {
	if client == nil {
		return nil, errors.New("openai client is nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: openai model is required", contractx.ErrValidation)
	}
	return &OpenAI{client: client, cfg: cfg}, nil
}

func (o *OpenAI) Invoke(ctx context.Context, prompt string, tag string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if tag = strings.TrimSpace(tag); tag != "" {
		messages = append(messages, openai.SystemMessage(tag))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(strings.TrimSpace(o.cfg.Model)),
		Messages:    messages,
		Temperature: openai.Float(float64(o.cfg.Temperature)),
	}
	if o.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.cfg.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
