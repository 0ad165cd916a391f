package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

func FinalizeRun(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Summary.RunID == "" {
		return GraphOutput{}, fmt.Errorf("%w: run summary was never built", contractx.ErrValidation)
	}
	return GraphOutput{Summary: in.Summary}, nil
}
