package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	statex "github.com/tanpawarit/interviewforge/agent/state"
)

// InterviewOutput is the transcript plus counters for metrics.
type InterviewOutput struct {
	Transcript []contractx.QAPair
	Asked      int
	Restored   int
}

type plannedQuestion struct {
	round    string
	focus    string
	question string
	rubric   contractx.Rubric
}

// DefaultRubric is the rubric attached to every planned question.
func DefaultRubric() contractx.Rubric {
	return contractx.Rubric{Structure: 3, Depth: 3, Examples: 4}
}

// InterviewAgent asks every planned question through an AnswerProvider and
// records each answer in the session. It never calls a text capability.
type InterviewAgent struct {
	answers contractx.AnswerProvider
	now     func() time.Time
	log     zerolog.Logger
}

func NewInterviewAgent(answers contractx.AnswerProvider, logger zerolog.Logger) *InterviewAgent {
	return &InterviewAgent{
		answers: answers,
		now:     time.Now,
		log:     logger.With().Str("stage", string(contractx.StageInterview)).Logger(),
	}
}

// WithClock overrides the time source used for elapsed time and checkpoints.
func (a *InterviewAgent) WithClock(now func() time.Time) *InterviewAgent {
	if now != nil {
		a.now = now
	}
	return a
}

// Execute conducts the interview. Entries before the session cursor are
// restored from the session, not re-asked. The returned error only reports
// misuse of the session.
func (a *InterviewAgent) Execute(ctx context.Context, rounds contractx.Rounds, session *statex.Session) (contractx.Result[InterviewOutput], error) {
	if session == nil {
		return contractx.Result[InterviewOutput]{}, fmt.Errorf("%w: %v", contractx.ErrValidation, statex.ErrNilSession)
	}

	plan := flatten(rounds)
	out := InterviewOutput{Transcript: make([]contractx.QAPair, 0, max(len(plan), session.Cursor))}

	for i := 0; i < session.Cursor; i++ {
		question, _ := session.QuestionAt(i)
		answer, _ := session.AnswerAt(i)
		qa := contractx.QAPair{Question: question, Answer: answer, Rubric: DefaultRubric()}
		if i < len(plan) {
			qa.Round, qa.Focus, qa.Rubric = plan[i].round, plan[i].focus, plan[i].rubric
		}
		out.Transcript = append(out.Transcript, qa)
		out.Restored++
	}
	if out.Restored > 0 {
		a.log.Info().Int("restored", out.Restored).Msg("resumed interview from checkpoint")
	}

	var filled []string
	for i := session.Cursor; i < len(plan); i++ {
		q := plan[i]
		start := a.now()
		answer, err := a.ask(ctx, q)
		if err != nil {
			a.log.Warn().Err(err).Int("index", i).Msg("answer provider failed, recording empty answer")
			filled = append(filled, fmt.Sprintf("transcript[%d].answer", i))
			answer = ""
		}
		finished := a.now()

		if _, err := session.Record(q.question, answer, finished); err != nil {
			return contractx.Result[InterviewOutput]{}, fmt.Errorf("%w: record answer %d: %v", contractx.ErrValidation, i, err)
		}
		out.Transcript = append(out.Transcript, contractx.QAPair{
			Round:     q.round,
			Focus:     q.focus,
			Question:  q.question,
			Answer:    answer,
			Rubric:    q.rubric,
			ElapsedMs: finished.Sub(start).Milliseconds(),
		})
		out.Asked++
	}

	return contractx.Decoded(out, filled...), nil
}

func (a *InterviewAgent) ask(ctx context.Context, q plannedQuestion) (string, error) {
	if a.answers == nil {
		return "", fmt.Errorf("%w: no answer provider", contractx.ErrValidation)
	}
	return a.answers.Answer(ctx, q.round, q.question)
}

// flatten lists (round, question) pairs in round order, each with its
// round focus and rubric.
func flatten(rounds contractx.Rounds) []plannedQuestion {
	out := make([]plannedQuestion, 0, rounds.QuestionCount())
	for _, kr := range rounds {
		name := kr.Round.Name
		if name == "" {
			name = kr.Key
		}
		for _, q := range kr.Round.Questions {
			out = append(out, plannedQuestion{
				round:    name,
				focus:    kr.Round.Focus,
				question: q,
				rubric:   DefaultRubric(),
			})
		}
	}
	return out
}
