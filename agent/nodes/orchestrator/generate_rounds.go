package orchestratornode

import (
	"context"

	stagex "github.com/tanpawarit/interviewforge/agent/agents/stage"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

type RoundsStage interface {
	Execute(ctx context.Context, in stagex.RoundsInput) contractx.Result[contractx.Rounds]
}

func GenerateRounds(ctx context.Context, in *GraphState, agent RoundsStage) (*GraphState, error) {
	if err := checkState(ctx, in, "generate_rounds"); err != nil {
		return nil, err
	}

	res := agent.Execute(ctx, stagex.RoundsInput{Role: in.Role, Profile: in.Profile})
	in.Rounds = res.Value
	in.record(res.Diagnostic(contractx.StageRounds))
	return in, nil
}
