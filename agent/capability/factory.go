package capability

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	llmx "github.com/tanpawarit/interviewforge/agent/llm"
	openrouterx "github.com/tanpawarit/interviewforge/pkg/openrouter"
)

// ForStage builds the capability one stage calls, honoring per-stage model
// overrides.
func ForStage(ctx context.Context, cfg llmx.Config, stage contractx.Stage) (contractx.TextCapability, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	orCfg := cfg.OpenRouterFor(stage)
	switch cfg.ResolvedProvider() {
	case llmx.ProviderNone:
		return Absent{}, nil
	case llmx.ProviderStub:
		return Stub{}, nil
	case llmx.ProviderEino:
		m, err := orCfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("create %s chat model: %w", stage, err)
		}
		c, err := NewChatModel(ctx, m, "capability."+string(stage))
		if err != nil {
			return nil, err
		}
		return WithTimeout(c, cfg.Timeout), nil
	case llmx.ProviderOpenAI:
		client, err := openrouterx.NewClient(orCfg)
		if err != nil {
			return nil, fmt.Errorf("create %s openai client: %w", stage, err)
		}
		maxTokens := 0
		if orCfg.MaxCompletionToken != nil {
			maxTokens = *orCfg.MaxCompletionToken
		}
		c, err := NewOpenAI(client, OpenAIConfig{
			Model:       orCfg.Model,
			Temperature: orCfg.Temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return nil, err
		}
		return WithTimeout(c, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, cfg.Provider)
	}
}

// ForStages builds one capability per generating stage.
func ForStages(ctx context.Context, cfg llmx.Config) (map[contractx.Stage]contractx.TextCapability, error) {
	out := make(map[contractx.Stage]contractx.TextCapability, len(llmx.GeneratingStages))
	for _, stage := range llmx.GeneratingStages {
		c, err := ForStage(ctx, cfg, stage)
		if err != nil {
			return nil, err
		}
		out[stage] = c
	}
	return out, nil
}
