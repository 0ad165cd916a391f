package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	promptx "github.com/tanpawarit/interviewforge/agent/prompt"
	"github.com/tidwall/gjson"
)

// DefaultStudyPlanText is the plan used when none could be produced.
const DefaultStudyPlanText = "Week 1: practice arrays; Week 2: system design"

func DefaultStudyPlan() contractx.StudyPlan {
	return contractx.StudyPlan{Plan: DefaultStudyPlanText, Flashcards: []contractx.Flashcard{}}
}

// StudyPlanAgent turns the critiques into a study plan and flashcards.
type StudyPlanAgent struct {
	caller
}

func NewStudyPlanAgent(capability contractx.TextCapability, prompt promptx.Template, logger zerolog.Logger) *StudyPlanAgent {
	return &StudyPlanAgent{caller: newCaller(contractx.StageStudyPlan, capability, prompt, logger)}
}

func (a *StudyPlanAgent) Execute(ctx context.Context, critiques []contractx.Critique) contractx.Result[contractx.StudyPlan] {
	if critiques == nil {
		critiques = []contractx.Critique{}
	}
	text, reason, ok := a.call(ctx, map[string]any{"critiques": compactJSON(critiques)})
	if !ok {
		return fallback(a.caller, DefaultStudyPlan(), reason, nil)
	}

	obj, err := objectBody(text)
	if err != nil {
		return fallback(a.caller, DefaultStudyPlan(), contractx.ReasonMalformedResponse, err)
	}

	var filled []string
	out := contractx.StudyPlan{Flashcards: []contractx.Flashcard{}}
	if plan := obj.Get("study_plan"); plan.Type == gjson.String && strings.TrimSpace(plan.Str) != "" {
		out.Plan = strings.TrimSpace(plan.Str)
	} else {
		out.Plan = DefaultStudyPlanText
		filled = append(filled, "study_plan")
	}

	cards := obj.Get("flashcards")
	if !cards.IsArray() {
		filled = append(filled, "flashcards")
		return decoded(a.caller, out, filled...)
	}
	// Cards are decoded one by one; a malformed card is dropped.
	for i, card := range cards.Array() {
		if !card.IsObject() {
			filled = append(filled, fmt.Sprintf("flashcards[%d]", i))
			continue
		}
		fc, err := decodeField[contractx.Flashcard](ctx, card)
		if err != nil {
			filled = append(filled, fmt.Sprintf("flashcards[%d]", i))
			continue
		}
		out.Flashcards = append(out.Flashcards, fc)
	}
	return decoded(a.caller, out, filled...)
}
