package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

type ProfileStage interface {
	Execute(ctx context.Context, resumeText string) contractx.Result[contractx.Profile]
}

func ExtractProfile(ctx context.Context, in *GraphState, agent ProfileStage) (*GraphState, error) {
	if err := checkState(ctx, in, "extract_profile"); err != nil {
		return nil, err
	}

	res := agent.Execute(ctx, in.ResumeText)
	in.Profile = res.Value
	in.record(res.Diagnostic(contractx.StageProfile))
	return in, nil
}
