package orchestratornode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	statex "github.com/tanpawarit/interviewforge/agent/state"
)

type GraphInput struct {
	RunID      string
	ResumeText string
	Role       string
	// Resumption, when set, seeds the session from a prior checkpoint trail.
	Resumption *contractx.Resumption
}

type GraphOutput struct {
	Summary contractx.RunSummary
}

// GraphState is the per-run state threaded through the node chain.
type GraphState struct {
	RunID      string
	ResumeText string
	Role       string
	StartedAt  time.Time

	Session *statex.Session
	Log     zerolog.Logger

	Profile     contractx.Profile
	Rounds      contractx.Rounds
	Transcript  []contractx.QAPair
	Critiques   []contractx.Critique
	Study       contractx.StudyPlan
	FollowUp    string
	Diagnostics []contractx.StageDiagnostic
	Metrics     contractx.Metrics

	Resumption  contractx.Resumption
	ArtifactDir string
	Summary     contractx.RunSummary
}

func ValidateRequest(in GraphInput, now time.Time, logger zerolog.Logger) (*GraphState, error) {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		return nil, contractx.ErrInvalidRole
	}
	runID := strings.TrimSpace(in.RunID)
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is empty", contractx.ErrValidation)
	}

	var (
		session *statex.Session
		err     error
	)
	if in.Resumption != nil {
		session, err = statex.ResumeSession(runID, in.Resumption.Checkpoints, in.Resumption.Cursor, now)
	} else {
		session, err = statex.NewSession(runID, now)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	return &GraphState{
		RunID:      runID,
		ResumeText: in.ResumeText,
		Role:       role,
		StartedAt:  now.UTC(),
		Session:    session,
		Log:        logger.With().Str("run_id", runID).Logger(),
	}, nil
}

// checkState guards every node after validate_request.
func checkState(ctx context.Context, in *GraphState, node string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: before %s: %w", contractx.ErrRunCancelled, node, err)
	}
	if in == nil || in.Session == nil {
		return fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	return nil
}

func (s *GraphState) record(d contractx.StageDiagnostic) {
	s.Diagnostics = append(s.Diagnostics, d)
	if d.Outcome == contractx.OutcomeUsedFallback {
		s.Metrics.Fallbacks++
	}
}
