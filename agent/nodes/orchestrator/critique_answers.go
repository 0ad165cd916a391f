package orchestratornode

import (
	"context"

	stagex "github.com/tanpawarit/interviewforge/agent/agents/stage"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

type CritiqueStage interface {
	Execute(ctx context.Context, in stagex.CritiqueInput) contractx.Result[contractx.Critique]
}

// CritiqueAnswers critiques every transcript entry, in transcript order.
func CritiqueAnswers(ctx context.Context, in *GraphState, agent CritiqueStage) (*GraphState, error) {
	if err := checkState(ctx, in, "critique_answers"); err != nil {
		return nil, err
	}

	in.Critiques = make([]contractx.Critique, 0, len(in.Transcript))
	for _, qa := range in.Transcript {
		res := agent.Execute(ctx, stagex.CritiqueInput{QA: qa, Profile: in.Profile})
		in.Critiques = append(in.Critiques, res.Value)
		in.record(res.Diagnostic(contractx.StageCritique))
	}
	in.Metrics.Critiques = len(in.Critiques)
	return in, nil
}
