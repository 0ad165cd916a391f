package prompt

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsRaw []byte

// Template is one stage prompt. Tag is sent as the system role.
type Template struct {
	Tag      string `yaml:"tag"`
	Template string `yaml:"template"`
}

// PromptSet holds the prompt of every generating stage.
type PromptSet struct {
	Profile       Template `yaml:"profile"`
	Rounds        Template `yaml:"rounds"`
	RoundCategory Template `yaml:"round_category"`
	Critique      Template `yaml:"critique"`
	StudyPlan     Template `yaml:"study_plan"`
	FollowUp      Template `yaml:"follow_up"`
}

var loadOnce = sync.OnceValues(func() (PromptSet, error) {
	return Parse(promptsRaw)
})

// LoadPromptSet returns the embedded prompt set. It is parsed once.
func LoadPromptSet() (PromptSet, error) {
	return loadOnce()
}

func MustLoadPromptSet() PromptSet {
	set, err := LoadPromptSet()
	if err != nil {
		panic(err)
	}
	return set
}

// Parse decodes a prompt set document and checks every stage is present.
func Parse(raw []byte) (PromptSet, error) {
	var set PromptSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return PromptSet{}, fmt.Errorf("parse prompt set: %w", err)
	}

	named := map[string]*Template{
		"profile":        &set.Profile,
		"rounds":         &set.Rounds,
		"round_category": &set.RoundCategory,
		"critique":       &set.Critique,
		"study_plan":     &set.StudyPlan,
		"follow_up":      &set.FollowUp,
	}
	var errs []error
	for name, tpl := range named {
		tpl.Tag = strings.TrimSpace(tpl.Tag)
		tpl.Template = strings.TrimSpace(tpl.Template)
		if tpl.Template == "" {
			errs = append(errs, fmt.Errorf("prompt %q has no template", name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return PromptSet{}, err
	}
	return set, nil
}

// Render fills the {placeholders} of the template.
func (t Template) Render(ctx context.Context, vars map[string]any) (string, error) {
	tpl := einoprompt.FromMessages(schema.FString, schema.UserMessage(t.Template))
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", errors.New("render prompt: no message produced")
	}
	return msgs[0].Content, nil
}
