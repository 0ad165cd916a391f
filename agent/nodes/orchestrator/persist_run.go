package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

func PersistRun(ctx context.Context, in *GraphState, store contractx.RunStore) (*GraphState, error) {
	if err := checkState(ctx, in, "persist_run"); err != nil {
		return nil, err
	}

	if len(in.Summary.Transcript) != len(in.Summary.Critiques) {
		return nil, fmt.Errorf("%w: transcript=%d critiques=%d",
			contractx.ErrValidation, len(in.Summary.Transcript), len(in.Summary.Critiques))
	}
	if err := store.SaveRun(ctx, in.Summary); err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrPersistence, err)
	}
	in.Log.Info().Int("questions", len(in.Summary.Transcript)).Msg("run persisted")
	return in, nil
}
