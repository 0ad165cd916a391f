package contract

import (
	"slices"
	"time"
)

type Stage string

const (
	StageProfile   Stage = "profile"
	StageRounds    Stage = "rounds"
	StageInterview Stage = "interview"
	StageCritique  Stage = "critique"
	StageStudyPlan Stage = "study_plan"
	StageFollowUp  Stage = "follow_up"
	StageArtifacts Stage = "artifacts"
)

// DefaultCandidateName is used whenever the profile carries no usable name.
const DefaultCandidateName = "Candidate"

type Profile struct {
	Name            string   `json:"name"`
	Skills          []string `json:"skills,omitempty"`
	YearsExperience *float64 `json:"years_experience,omitempty"`
	Projects        []string `json:"projects,omitempty"`
	Highlights      []string `json:"highlights,omitempty"`
}

type Round struct {
	Name      string   `json:"name"`
	Focus     string   `json:"focus,omitempty"`
	Questions []string `json:"questions"`
}

// Rubric is the per-question weighting of critique criteria, each 0..10.
type Rubric struct {
	Structure int `json:"structure"`
	Depth     int `json:"depth"`
	Examples  int `json:"examples"`
}

type QAPair struct {
	Round     string `json:"round"`
	Focus     string `json:"focus,omitempty"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Rubric    Rubric `json:"rubric"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Critique carries a nil Score when the score could not be determined.
type Critique struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Score    *int   `json:"score"`
	Feedback string `json:"feedback"`
}

type Flashcard struct {
	Q string `json:"q"`
	A string `json:"a"`
}

type StudyPlan struct {
	Plan       string      `json:"study_plan"`
	Flashcards []Flashcard `json:"flashcards"`
}

// Checkpoint is an immutable snapshot of interview progress.
type Checkpoint struct {
	Time      time.Time `json:"time"`
	Cursor    int       `json:"cursor"`
	Questions []string  `json:"questions"`
	Answers   []string  `json:"answers"`
}

// Resumption seeds a new session from a previous run's checkpoint trail.
type Resumption struct {
	Cursor      int          `json:"cursor"`
	Checkpoints []Checkpoint `json:"checkpoints"`
}

type Metrics struct {
	QuestionsAsked  int   `json:"questions_asked"`
	Critiques       int   `json:"critiques"`
	Fallbacks       int   `json:"fallbacks"`
	RestoredAnswers int   `json:"restored_answers"`
	DurationMs      int64 `json:"duration_ms"`
}

type StageDiagnostic struct {
	Stage   Stage       `json:"stage"`
	Outcome OutcomeKind `json:"outcome"`
	Reason  string      `json:"reason,omitempty"`
	Filled  []string    `json:"filled,omitempty"`
}

// RunSummary is a completed run and the persisted record of it.
type RunSummary struct {
	RunID         string            `json:"run_id"`
	Role          string            `json:"role"`
	Profile       Profile           `json:"profile"`
	Rounds        Rounds            `json:"rounds"`
	Transcript    []QAPair          `json:"transcript"`
	Critiques     []Critique        `json:"critiques"`
	Study         StudyPlan         `json:"study"`
	FollowUpEmail string            `json:"follow_up_email"`
	Metrics       Metrics           `json:"metrics"`
	Checkpoints   []Checkpoint      `json:"checkpoints"`
	Diagnostics   []StageDiagnostic `json:"diagnostics,omitempty"`
	ArtifactDir   string            `json:"artifact_dir,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   time.Time         `json:"completed_at"`
}

// Clone returns a deep copy of r. Nil and empty slices are kept as they are.
func (r RunSummary) Clone() RunSummary {
	out := r
	out.Profile = r.Profile.clone()
	out.Rounds = make(Rounds, 0, len(r.Rounds))
	for _, kr := range r.Rounds {
		kr.Round.Questions = slices.Clone(kr.Round.Questions)
		out.Rounds = append(out.Rounds, kr)
	}
	if r.Rounds == nil {
		out.Rounds = nil
	}
	out.Transcript = slices.Clone(r.Transcript)
	out.Critiques = slices.Clone(r.Critiques)
	for i, c := range out.Critiques {
		if c.Score != nil {
			score := *c.Score
			out.Critiques[i].Score = &score
		}
	}
	out.Study.Flashcards = slices.Clone(r.Study.Flashcards)
	out.Checkpoints = slices.Clone(r.Checkpoints)
	for i, cp := range out.Checkpoints {
		out.Checkpoints[i].Questions = slices.Clone(cp.Questions)
		out.Checkpoints[i].Answers = slices.Clone(cp.Answers)
	}
	out.Diagnostics = slices.Clone(r.Diagnostics)
	for i, d := range out.Diagnostics {
		out.Diagnostics[i].Filled = slices.Clone(d.Filled)
	}
	return out
}

func (p Profile) clone() Profile {
	out := p
	out.Skills = slices.Clone(p.Skills)
	out.Projects = slices.Clone(p.Projects)
	out.Highlights = slices.Clone(p.Highlights)
	if p.YearsExperience != nil {
		years := *p.YearsExperience
		out.YearsExperience = &years
	}
	return out
}

// CloneRuns deep-copies every run in runs. An empty list gives nil.
func CloneRuns(runs []RunSummary) []RunSummary {
	if len(runs) == 0 {
		return nil
	}
	out := make([]RunSummary, len(runs))
	for i, r := range runs {
		out[i] = r.Clone()
	}
	return out
}

// ArtifactBundle is what an OutputSink receives at the end of a run.
type ArtifactBundle struct {
	RunID      string
	Summary    RunSummary
	Transcript []QAPair
	Critiques  []Critique
	Study      StudyPlan
	FollowUp   string
	Resumption Resumption
}
