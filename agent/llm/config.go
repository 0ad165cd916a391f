package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	openrouterx "github.com/tanpawarit/interviewforge/pkg/openrouter"
)

type Provider string

const (
	// ProviderEino calls the model through an eino chat model.
	ProviderEino Provider = "eino"
	// ProviderOpenAI calls chat completions through openai-go directly.
	ProviderOpenAI Provider = "openai"
	// ProviderStub answers from a deterministic offline table.
	ProviderStub Provider = "stub"
	// ProviderNone makes every stage fall back.
	ProviderNone Provider = "none"
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" split_words:"true" default:"eino"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true" default:"interviewforge"`

	ProfileModel          string  `envconfig:"PROFILE_MODEL" split_words:"true"`
	RoundsModel           string  `envconfig:"ROUNDS_MODEL" split_words:"true"`
	CritiqueModel         string  `envconfig:"CRITIQUE_MODEL" split_words:"true"`
	StudyPlanModel        string  `envconfig:"STUDY_PLAN_MODEL" split_words:"true"`
	FollowUpModel         string  `envconfig:"FOLLOW_UP_MODEL" split_words:"true"`
	CritiqueTemperature   float32 `envconfig:"CRITIQUE_TEMPERATURE" split_words:"true" default:"-1"`
	FollowUpTemperature   float32 `envconfig:"FOLLOW_UP_TEMPERATURE" split_words:"true" default:"-1"`
	StructuredTemperature float32 `envconfig:"STRUCTURED_TEMPERATURE" split_words:"true" default:"-1"`
}

// ResolvedProvider returns the provider to use. A remote provider without an
// API key degrades to ProviderNone.
func (c Config) ResolvedProvider() Provider {
	p := Provider(strings.ToLower(strings.TrimSpace(c.Provider)))
	switch p {
	case ProviderStub, ProviderNone:
		return p
	case "", ProviderEino, ProviderOpenAI:
		if strings.TrimSpace(c.APIKey) == "" {
			return ProviderNone
		}
		if p == "" {
			return ProviderEino
		}
		return p
	default:
		return p
	}
}

func (c Config) Validate() error {
	switch c.ResolvedProvider() {
	case ProviderStub, ProviderNone:
		return nil
	case ProviderEino, ProviderOpenAI:
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
}

// OpenRouterFor resolves the model settings for one stage. Per-stage
// overrides win over the defaults; a negative temperature means unset.
func (c Config) OpenRouterFor(stage contractx.Stage) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, t float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch stage {
	case contractx.StageProfile:
		override(c.ProfileModel, c.StructuredTemperature)
	case contractx.StageRounds:
		override(c.RoundsModel, c.StructuredTemperature)
	case contractx.StageCritique:
		override(c.CritiqueModel, c.CritiqueTemperature)
	case contractx.StageStudyPlan:
		override(c.StudyPlanModel, c.StructuredTemperature)
	case contractx.StageFollowUp:
		override(c.FollowUpModel, c.FollowUpTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// GeneratingStages are the stages that call a text capability.
var GeneratingStages = []contractx.Stage{
	contractx.StageProfile,
	contractx.StageRounds,
	contractx.StageCritique,
	contractx.StageStudyPlan,
	contractx.StageFollowUp,
}
