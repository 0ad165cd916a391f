package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

// ReasonSinkError marks an artifact diagnostic for a failed sink write.
const ReasonSinkError = "sink_error"

// WriteArtifacts completes the session, builds the run summary, and hands the
// bundle to sink. A sink failure is recorded and does not stop the run.
func WriteArtifacts(ctx context.Context, in *GraphState, sink contractx.OutputSink, now time.Time) (*GraphState, error) {
	if err := checkState(ctx, in, "write_artifacts"); err != nil {
		return nil, err
	}

	resumption, err := in.Session.Complete(now)
	if err != nil {
		return nil, fmt.Errorf("%w: complete session: %v", contractx.ErrValidation, err)
	}
	in.Resumption = resumption
	in.Summary = buildSummary(in, now)

	if sink == nil {
		return in, nil
	}

	loc, err := sink.Write(ctx, contractx.ArtifactBundle{
		RunID:      in.RunID,
		Summary:    in.Summary,
		Transcript: in.Transcript,
		Critiques:  in.Critiques,
		Study:      in.Study,
		FollowUp:   in.FollowUp,
		Resumption: in.Resumption,
	})
	if err != nil {
		in.Log.Error().Err(err).Str("stage", string(contractx.StageArtifacts)).Msg("artifact sink failed")
		in.Diagnostics = append(in.Diagnostics, contractx.StageDiagnostic{
			Stage:   contractx.StageArtifacts,
			Outcome: contractx.OutcomeUsedFallback,
			Reason:  ReasonSinkError,
		})
		in.Summary.Diagnostics = in.Diagnostics
		return in, nil
	}
	in.ArtifactDir = loc
	in.Summary.ArtifactDir = loc
	return in, nil
}

func buildSummary(in *GraphState, now time.Time) contractx.RunSummary {
	completed := now.UTC()
	metrics := in.Metrics
	metrics.DurationMs = completed.Sub(in.StartedAt).Milliseconds()
	in.Metrics = metrics

	return contractx.RunSummary{
		RunID:         in.RunID,
		Role:          in.Role,
		Profile:       in.Profile,
		Rounds:        in.Rounds,
		Transcript:    in.Transcript,
		Critiques:     in.Critiques,
		Study:         in.Study,
		FollowUpEmail: in.FollowUp,
		Metrics:       metrics,
		Checkpoints:   in.Resumption.Checkpoints,
		Diagnostics:   in.Diagnostics,
		StartedAt:     in.StartedAt,
		CompletedAt:   completed,
	}
}
