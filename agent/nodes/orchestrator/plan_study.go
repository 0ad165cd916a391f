package orchestratornode

import (
	"context"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

type StudyPlanStage interface {
	Execute(ctx context.Context, critiques []contractx.Critique) contractx.Result[contractx.StudyPlan]
}

func PlanStudy(ctx context.Context, in *GraphState, agent StudyPlanStage) (*GraphState, error) {
	if err := checkState(ctx, in, "plan_study"); err != nil {
		return nil, err
	}

	res := agent.Execute(ctx, in.Critiques)
	in.Study = res.Value
	in.record(res.Diagnostic(contractx.StageStudyPlan))
	return in, nil
}
