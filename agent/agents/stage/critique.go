package stage

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	promptx "github.com/tanpawarit/interviewforge/agent/prompt"
)

// DefaultFeedback is the feedback recorded when no critique was produced.
const DefaultFeedback = "No critique generated."

var scoreDigits = regexp.MustCompile(`\d{1,2}`)

type CritiqueInput struct {
	QA      contractx.QAPair
	Profile contractx.Profile
}

// CritiqueAgent scores one answer.
type CritiqueAgent struct {
	caller
}

func NewCritiqueAgent(capability contractx.TextCapability, prompt promptx.Template, logger zerolog.Logger) *CritiqueAgent {
	return &CritiqueAgent{caller: newCaller(contractx.StageCritique, capability, prompt, logger)}
}

func (a *CritiqueAgent) Execute(ctx context.Context, in CritiqueInput) contractx.Result[contractx.Critique] {
	out := contractx.Critique{
		Question: in.QA.Question,
		Answer:   in.QA.Answer,
		Feedback: DefaultFeedback,
	}

	text, reason, ok := a.call(ctx, map[string]any{
		"question": in.QA.Question,
		"answer":   in.QA.Answer,
		"round":    in.QA.Round,
		"focus":    in.QA.Focus,
		"rubric":   compactJSON(in.QA.Rubric),
		"profile":  compactJSON(in.Profile),
	})
	if !ok {
		return fallback(a.caller, out, reason, nil)
	}

	out.Score = ParseScore(text)
	out.Feedback = parseFeedback(text)

	var filled []string
	if out.Score == nil {
		filled = append(filled, "score")
	}
	return decoded(a.caller, out, filled...)
}

// ParseScore reads a 1..10 score. The text must mention "score"; the first
// run of at most two digits anywhere in the text is the score. Anything else
// is unknown.
func ParseScore(text string) *int {
	if !strings.Contains(strings.ToLower(text), "score") {
		return nil
	}
	digits := scoreDigits.FindString(text)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > 10 {
		return nil
	}
	return &n
}

func parseFeedback(text string) string {
	trimmed := strings.TrimSpace(text)
	idx := strings.Index(strings.ToLower(trimmed), "feedback:")
	if idx < 0 {
		return trimmed
	}
	if fb := strings.TrimSpace(trimmed[idx+len("feedback:"):]); fb != "" {
		return fb
	}
	return trimmed
}
