package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	promptx "github.com/tanpawarit/interviewforge/agent/prompt"
)

type FollowUpInput struct {
	Name      string
	Role      string
	Critiques []contractx.Critique
}

// DefaultFollowUp is the deterministic follow-up email.
func DefaultFollowUp(name, role string) string {
	if strings.TrimSpace(name) == "" {
		name = contractx.DefaultCandidateName
	}
	return fmt.Sprintf("Hi %s,\n\n"+
		"Thank you for the mock interview for the %s position. "+
		"Your transcript, the feedback on each answer, and a study plan are attached.\n\n"+
		"Best regards,\nInterviewForge", name, role)
}

// FollowUpAgent drafts the follow-up email.
type FollowUpAgent struct {
	caller
}

func NewFollowUpAgent(capability contractx.TextCapability, prompt promptx.Template, logger zerolog.Logger) *FollowUpAgent {
	return &FollowUpAgent{caller: newCaller(contractx.StageFollowUp, capability, prompt, logger)}
}

func (a *FollowUpAgent) Execute(ctx context.Context, in FollowUpInput) contractx.Result[string] {
	text, reason, ok := a.call(ctx, map[string]any{
		"name":    in.Name,
		"role":    in.Role,
		"summary": critiqueSummary(in.Critiques),
	})
	if !ok {
		return fallback(a.caller, DefaultFollowUp(in.Name, in.Role), reason, nil)
	}
	return decoded(a.caller, stripFence(text))
}

func critiqueSummary(critiques []contractx.Critique) string {
	var b strings.Builder
	b.WriteString("Summary of critiques:")
	for _, c := range critiques {
		b.WriteString("\n- ")
		b.WriteString(c.Feedback)
	}
	return b.String()
}
