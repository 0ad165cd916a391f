package stage

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	promptx "github.com/tanpawarit/interviewforge/agent/prompt"
	"github.com/tidwall/gjson"
)

// ProfileAgent extracts a candidate profile from resume text.
type ProfileAgent struct {
	caller
}

func NewProfileAgent(capability contractx.TextCapability, prompt promptx.Template, logger zerolog.Logger) *ProfileAgent {
	return &ProfileAgent{caller: newCaller(contractx.StageProfile, capability, prompt, logger)}
}

// DefaultProfile is the profile used when extraction yields nothing.
func DefaultProfile() contractx.Profile {
	return contractx.Profile{Name: contractx.DefaultCandidateName}
}

func (a *ProfileAgent) Execute(ctx context.Context, resumeText string) contractx.Result[contractx.Profile] {
	text, reason, ok := a.call(ctx, map[string]any{"resume": resumeText})
	if !ok {
		return fallback(a.caller, DefaultProfile(), reason, nil)
	}

	obj, err := objectBody(text)
	if err != nil {
		return fallback(a.caller, DefaultProfile(), contractx.ReasonMalformedResponse, err)
	}

	var (
		profile contractx.Profile
		filled  []string
	)
	if name := obj.Get("name"); name.Type == gjson.String && strings.TrimSpace(name.Str) != "" {
		profile.Name = strings.TrimSpace(name.Str)
	} else {
		profile.Name = contractx.DefaultCandidateName
		filled = append(filled, "name")
	}
	optionalField(ctx, a.caller, obj, "skills", &profile.Skills, &filled)
	optionalField(ctx, a.caller, obj, "years_experience", &profile.YearsExperience, &filled)
	optionalField(ctx, a.caller, obj, "projects", &profile.Projects, &filled)
	optionalField(ctx, a.caller, obj, "highlights", &profile.Highlights, &filled)
	return decoded(a.caller, profile, filled...)
}
