package capability

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

var _ contractx.TextCapability = (*ChatModel)(nil)

type invokeInput struct {
	Prompt string
	Tag    string
}

// ChatModel adapts an eino chat model to TextCapability. The call runs as a
// small compiled graph: build_messages -> model -> extract_text.
type ChatModel struct {
	runner compose.Runnable[invokeInput, string]
}

func NewChatModel(ctx context.Context, chatModel einomodel.BaseChatModel, graphName string) (*ChatModel, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(graphName) == "" {
		graphName = "capability.chat_model"
	}

	graph := compose.NewGraph[invokeInput, string]()

	if err := graph.AddLambdaNode("build_messages",
		compose.InvokableLambda(func(ctx context.Context, in invokeInput) ([]*schema.Message, error) {
			msgs := make([]*schema.Message, 0, 2)
			if tag := strings.TrimSpace(in.Tag); tag != "" {
				msgs = append(msgs, schema.SystemMessage(tag))
			}
			return append(msgs, schema.UserMessage(in.Prompt)), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add build_messages node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}
	if err := graph.AddLambdaNode("extract_text",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (string, error) {
			if msg == nil {
				return "", nil
			}
			return msg.Content, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add extract_text node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "build_messages"},
		{"build_messages", "model"},
		{"model", "extract_text"},
		{"extract_text", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile chat model graph: %w", err)
	}
	return &ChatModel{runner: runner}, nil
}

func (c *ChatModel) Invoke(ctx context.Context, prompt string, tag string) (string, error) {
	out, err := c.runner.Invoke(ctx, invokeInput{Prompt: prompt, Tag: tag})
	if err != nil {
		return "", fmt.Errorf("chat model invoke: %w", err)
	}
	return out, nil
}
