package orchestratornode

import (
	"context"

	stagex "github.com/tanpawarit/interviewforge/agent/agents/stage"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

type FollowUpStage interface {
	Execute(ctx context.Context, in stagex.FollowUpInput) contractx.Result[string]
}

func DraftFollowUp(ctx context.Context, in *GraphState, agent FollowUpStage) (*GraphState, error) {
	if err := checkState(ctx, in, "draft_followup"); err != nil {
		return nil, err
	}

	res := agent.Execute(ctx, stagex.FollowUpInput{
		Name:      in.Profile.Name,
		Role:      in.Role,
		Critiques: in.Critiques,
	})
	in.FollowUp = res.Value
	in.record(res.Diagnostic(contractx.StageFollowUp))
	return in, nil
}
