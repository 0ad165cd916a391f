package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

// Session is the run-scoped interview state.
// - Progress: Questions + Answers (index aligned) + Cursor
// - Audit: Checkpoints, one appended per answered question, never mutated
type Session struct {
	RunID  string        `json:"run_id"`
	Status SessionStatus `json:"status"`

	Questions   []string               `json:"questions"`
	Answers     []string               `json:"answers"`
	Cursor      int                    `json:"cursor"`
	Checkpoints []contractx.Checkpoint `json:"checkpoints"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

var (
	ErrNilSession        = errors.New("session is nil")
	ErrInvalidRunID      = errors.New("run id is empty")
	ErrSessionCompleted  = errors.New("session is completed")
	ErrInvalidCursor     = errors.New("resume cursor out of range")
	ErrCheckpointCorrupt = errors.New("checkpoint trail corrupt")
)

func NewSession(runID string, now time.Time) (*Session, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, ErrInvalidRunID
	}
	return &Session{
		RunID:       runID,
		Status:      SessionCreated,
		Questions:   make([]string, 0, 8),
		Answers:     make([]string, 0, 8),
		Checkpoints: make([]contractx.Checkpoint, 0, 8),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// ResumeSession seeds a session from a prior checkpoint trail so that the
// interview continues at index cursor. Questions and answers before the cursor
// come from checkpoint cursor-1. The given slice is copied, never mutated.
func ResumeSession(runID string, checkpoints []contractx.Checkpoint, cursor int, now time.Time) (*Session, error) {
	s, err := NewSession(runID, now)
	if err != nil {
		return nil, err
	}
	if cursor < 0 || cursor > len(checkpoints) {
		return nil, fmt.Errorf("%w: cursor=%d checkpoints=%d", ErrInvalidCursor, cursor, len(checkpoints))
	}
	if cursor == 0 {
		return s, nil
	}

	last := checkpoints[cursor-1]
	if len(last.Questions) < cursor || len(last.Answers) < cursor {
		return nil, fmt.Errorf("%w: checkpoint %d holds %d questions and %d answers",
			ErrCheckpointCorrupt, cursor-1, len(last.Questions), len(last.Answers))
	}

	s.Checkpoints = append(s.Checkpoints, copyCheckpoints(checkpoints[:cursor])...)
	s.Questions = append(s.Questions, last.Questions[:cursor]...)
	s.Answers = append(s.Answers, last.Answers[:cursor]...)
	s.Cursor = cursor
	s.Status = SessionActive
	return s, nil
}

/* ---------------------------- Session helpers ---------------------------- */

// Record appends one answered question and its checkpoint.
func (s *Session) Record(question, answer string, now time.Time) (contractx.Checkpoint, error) {
	if s == nil {
		return contractx.Checkpoint{}, ErrNilSession
	}
	if s.Status == SessionCompleted {
		return contractx.Checkpoint{}, ErrSessionCompleted
	}

	s.Questions = append(s.Questions, question)
	s.Answers = append(s.Answers, answer)
	s.Cursor++

	cp := contractx.Checkpoint{
		Time:      now.UTC(),
		Cursor:    s.Cursor,
		Questions: append([]string(nil), s.Questions...),
		Answers:   append([]string(nil), s.Answers...),
	}
	s.Checkpoints = append(s.Checkpoints, cp)

	if s.Status == SessionCreated {
		s.Status = SessionActive
	}
	s.Touch(now)
	return cp, nil
}

// AnswerAt returns the recorded answer at index i.
func (s *Session) AnswerAt(i int) (string, bool) {
	if s == nil || i < 0 || i >= len(s.Answers) {
		return "", false
	}
	return s.Answers[i], true
}

// QuestionAt returns the recorded question at index i.
func (s *Session) QuestionAt(i int) (string, bool) {
	if s == nil || i < 0 || i >= len(s.Questions) {
		return "", false
	}
	return s.Questions[i], true
}

// Complete moves the session to its terminal state and returns the trail to
// fold into the run.
func (s *Session) Complete(now time.Time) (contractx.Resumption, error) {
	if s == nil {
		return contractx.Resumption{}, ErrNilSession
	}
	if s.Status == SessionCompleted {
		return contractx.Resumption{}, ErrSessionCompleted
	}
	if err := s.Validate(); err != nil {
		return contractx.Resumption{}, err
	}
	s.Status = SessionCompleted
	s.Touch(now)
	return s.Snapshot(), nil
}

// Snapshot returns a copy of the current cursor and checkpoint trail.
func (s *Session) Snapshot() contractx.Resumption {
	if s == nil {
		return contractx.Resumption{}
	}
	return contractx.Resumption{
		Cursor:      s.Cursor,
		Checkpoints: copyCheckpoints(s.Checkpoints),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) Validate() error {
	if len(s.Checkpoints) != s.Cursor {
		return fmt.Errorf("%w: checkpoints=%d cursor=%d", ErrCheckpointCorrupt, len(s.Checkpoints), s.Cursor)
	}
	if len(s.Questions) != len(s.Answers) {
		return fmt.Errorf("%w: questions=%d answers=%d", ErrCheckpointCorrupt, len(s.Questions), len(s.Answers))
	}
	if len(s.Answers) != s.Cursor {
		return fmt.Errorf("%w: answers=%d cursor=%d", ErrCheckpointCorrupt, len(s.Answers), s.Cursor)
	}
	return nil
}

func copyCheckpoints(in []contractx.Checkpoint) []contractx.Checkpoint {
	out := make([]contractx.Checkpoint, len(in))
	for i, cp := range in {
		out[i] = contractx.Checkpoint{
			Time:      cp.Time,
			Cursor:    cp.Cursor,
			Questions: append([]string(nil), cp.Questions...),
			Answers:   append([]string(nil), cp.Answers...),
		}
	}
	return out
}
