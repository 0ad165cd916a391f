// Package artifact delivers the artifact bundle of a completed run.
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	"github.com/tanpawarit/interviewforge/pkg/atomicfile"
)

// Artifact file names inside a run directory.
const (
	TranscriptFile  = "transcript.json"
	CritiquesFile   = "critiques.json"
	StudyPlanFile   = "study_plan.md"
	FlashcardsFile  = "flashcards.json"
	FollowUpFile    = "followup_email.txt"
	CheckpointsFile = "checkpoints.json"
	SummaryFile     = "summary.json"
)

var ErrInvalidRunID = errors.New("artifact run id is not a valid directory name")

// DirSink writes each bundle into <root>/<run_id>/.
type DirSink struct {
	root string
	log  zerolog.Logger
}

func NewDirSink(root string, logger zerolog.Logger) (*DirSink, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("artifact output dir is required")
	}
	return &DirSink{root: root, log: logger.With().Str("component", "dir_sink").Logger()}, nil
}

func (s *DirSink) Write(ctx context.Context, bundle contractx.ArtifactBundle) (string, error) {
	runID := strings.TrimSpace(bundle.RunID)
	if runID == "" || runID != filepath.Base(runID) || runID == "." || runID == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunID, bundle.RunID)
	}

	dir := filepath.Join(s.root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	summary := bundle.Summary
	summary.ArtifactDir = dir

	files := []struct {
		name string
		data func() ([]byte, error)
	}{
		{TranscriptFile, jsonOf(nonNil(bundle.Transcript))},
		{CritiquesFile, jsonOf(nonNil(bundle.Critiques))},
		{StudyPlanFile, textOf(studyPlanMarkdown(bundle.Study))},
		{FlashcardsFile, jsonOf(nonNil(bundle.Study.Flashcards))},
		{FollowUpFile, textOf(bundle.FollowUp)},
		{CheckpointsFile, jsonOf(resumptionDoc(bundle.Resumption))},
		{SummaryFile, jsonOf(summary)},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := f.data()
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", f.name, err)
		}
		if err := atomicfile.WriteFile(filepath.Join(dir, f.name), data, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	s.log.Info().Str("run_id", runID).Str("dir", dir).Msg("artifacts written")
	return dir, nil
}

// ReadResumption loads a checkpoints.json written by DirSink.
func ReadResumption(path string) (contractx.Resumption, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return contractx.Resumption{}, err
	}
	var r contractx.Resumption
	if err := json.Unmarshal(raw, &r); err != nil {
		return contractx.Resumption{}, fmt.Errorf("%w: decode %s: %v", contractx.ErrValidation, path, err)
	}
	if r.Cursor < 0 || r.Cursor > len(r.Checkpoints) {
		return contractx.Resumption{}, fmt.Errorf("%w: cursor %d with %d checkpoints", contractx.ErrValidation, r.Cursor, len(r.Checkpoints))
	}
	return r, nil
}

func studyPlanMarkdown(plan contractx.StudyPlan) string {
	var b strings.Builder
	b.WriteString("# Study plan\n\n")
	b.WriteString(strings.TrimSpace(plan.Plan))
	b.WriteString("\n")
	if len(plan.Flashcards) > 0 {
		b.WriteString("\n## Flashcards\n\n")
		for _, fc := range plan.Flashcards {
			fmt.Fprintf(&b, "- **Q:** %s\n  **A:** %s\n", fc.Q, fc.A)
		}
	}
	return b.String()
}

func resumptionDoc(r contractx.Resumption) contractx.Resumption {
	if r.Checkpoints == nil {
		r.Checkpoints = []contractx.Checkpoint{}
	}
	return r
}

func jsonOf(v any) func() ([]byte, error) {
	return func() ([]byte, error) {
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(raw, '\n'), nil
	}
}

func textOf(s string) func() ([]byte, error) {
	return func() ([]byte, error) {
		return []byte(s), nil
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
