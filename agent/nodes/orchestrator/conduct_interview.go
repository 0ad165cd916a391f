package orchestratornode

import (
	"context"

	stagex "github.com/tanpawarit/interviewforge/agent/agents/stage"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	statex "github.com/tanpawarit/interviewforge/agent/state"
)

type InterviewStage interface {
	Execute(ctx context.Context, rounds contractx.Rounds, session *statex.Session) (contractx.Result[stagex.InterviewOutput], error)
}

func ConductInterview(ctx context.Context, in *GraphState, agent InterviewStage) (*GraphState, error) {
	if err := checkState(ctx, in, "conduct_interview"); err != nil {
		return nil, err
	}

	res, err := agent.Execute(ctx, in.Rounds, in.Session)
	if err != nil {
		return nil, err
	}
	in.Transcript = res.Value.Transcript
	in.Metrics.QuestionsAsked = res.Value.Asked
	in.Metrics.RestoredAnswers = res.Value.Restored
	in.record(res.Diagnostic(contractx.StageInterview))
	return in, nil
}
