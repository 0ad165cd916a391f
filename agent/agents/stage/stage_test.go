package stage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	promptx "github.com/tanpawarit/interviewforge/agent/prompt"
	statex "github.com/tanpawarit/interviewforge/agent/state"
	"go.uber.org/goleak"
)

var testLogger = zerolog.New(io.Discard)

func testPrompts(t *testing.T) promptx.PromptSet {
	t.Helper()
	ps, err := promptx.LoadPromptSet()
	if err != nil {
		t.Fatalf("LoadPromptSet() error = %v", err)
	}
	return ps
}

// fakeCapability answers by tag. A tag with no reply is absent.
type fakeCapability struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   map[string]int
	prompts []string
}

func newFakeCapability(replies map[string]string) *fakeCapability {
	return &fakeCapability{replies: replies, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeCapability) Invoke(_ context.Context, prompt string, tag string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[tag]++
	f.prompts = append(f.prompts, prompt)
	if err := f.errs[tag]; err != nil {
		return "", err
	}
	reply, ok := f.replies[tag]
	if !ok {
		return "", contractx.ErrCapabilityAbsent
	}
	return reply, nil
}

func (f *fakeCapability) count(tag string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tag]
}

func TestProfileAgent(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	tests := []struct {
		name       string
		reply      *string
		wantName   string
		wantKind   contractx.OutcomeKind
		wantReason string
		wantFilled []string
	}{
		{
			name:     "decoded",
			reply:    ptr(`{"name":"Jane Doe","skills":["python","sql"]}`),
			wantName: "Jane Doe",
			wantKind: contractx.OutcomeDecoded,
		},
		{
			name:     "fenced json",
			reply:    ptr("```json\n{\"name\":\"Jane\"}\n```"),
			wantName: "Jane",
			wantKind: contractx.OutcomeDecoded,
		},
		{
			name:       "blank name is filled",
			reply:      ptr(`{"name":"  ","skills":[]}`),
			wantName:   contractx.DefaultCandidateName,
			wantKind:   contractx.OutcomeDecoded,
			wantFilled: []string{"name"},
		},
		{
			name:       "malformed",
			reply:      ptr(`not json`),
			wantName:   contractx.DefaultCandidateName,
			wantKind:   contractx.OutcomeUsedFallback,
			wantReason: contractx.ReasonMalformedResponse,
		},
		{
			name:       "array is malformed",
			reply:      ptr(`["Jane"]`),
			wantName:   contractx.DefaultCandidateName,
			wantKind:   contractx.OutcomeUsedFallback,
			wantReason: contractx.ReasonMalformedResponse,
		},
		{
			name:       "empty reply is absent",
			reply:      ptr("   "),
			wantName:   contractx.DefaultCandidateName,
			wantKind:   contractx.OutcomeUsedFallback,
			wantReason: contractx.ReasonCapabilityAbsent,
		},
		{
			name:       "absent",
			wantName:   contractx.DefaultCandidateName,
			wantKind:   contractx.OutcomeUsedFallback,
			wantReason: contractx.ReasonCapabilityAbsent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			replies := map[string]string{}
			if tt.reply != nil {
				replies[ps.Profile.Tag] = *tt.reply
			}
			agent := NewProfileAgent(newFakeCapability(replies), ps.Profile, testLogger)
			res := agent.Execute(context.Background(), "Name: Jane")
			if res.Value.Name != tt.wantName {
				t.Fatalf("name = %q, want %q", res.Value.Name, tt.wantName)
			}
			if res.Outcome.Kind != tt.wantKind || res.Outcome.Reason != tt.wantReason {
				t.Fatalf("outcome = %+v, want %s/%s", res.Outcome, tt.wantKind, tt.wantReason)
			}
			if diff := cmp.Diff(tt.wantFilled, res.Outcome.Filled); diff != "" {
				t.Fatalf("filled mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProfileAgentKeepsWellTypedFields(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	tests := []struct {
		name       string
		reply      string
		want       contractx.Profile
		wantFilled []string
	}{
		{
			name:       "years as string",
			reply:      `{"name":"Jane","skills":["go"],"years_experience":"3"}`,
			want:       contractx.Profile{Name: "Jane", Skills: []string{"go"}},
			wantFilled: []string{"years_experience"},
		},
		{
			name:       "skills as string",
			reply:      `{"name":"Jane","skills":"python, sql","years_experience":3}`,
			want:       contractx.Profile{Name: "Jane", YearsExperience: ptr(3.0)},
			wantFilled: []string{"skills"},
		},
		{
			name:       "highlights of objects",
			reply:      `{"name":"Jane","projects":["etl"],"highlights":[{"text":"x"}]}`,
			want:       contractx.Profile{Name: "Jane", Projects: []string{"etl"}},
			wantFilled: []string{"highlights"},
		},
		{
			name:       "name as number",
			reply:      `{"name":7,"skills":["sql"]}`,
			want:       contractx.Profile{Name: contractx.DefaultCandidateName, Skills: []string{"sql"}},
			wantFilled: []string{"name"},
		},
		{
			name:  "nulls are absent",
			reply: `{"name":"Jane","skills":null,"years_experience":null}`,
			want:  contractx.Profile{Name: "Jane"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fc := newFakeCapability(map[string]string{ps.Profile.Tag: tt.reply})
			res := NewProfileAgent(fc, ps.Profile, testLogger).Execute(context.Background(), "resume")
			if res.Outcome.Kind != contractx.OutcomeDecoded {
				t.Fatalf("outcome = %+v, want decoded", res.Outcome)
			}
			if diff := cmp.Diff(tt.want, res.Value); diff != "" {
				t.Fatalf("profile mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantFilled, res.Outcome.Filled); diff != "" {
				t.Fatalf("filled mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProfileAgentCapabilityError(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	fc := newFakeCapability(map[string]string{})
	fc.errs[ps.Profile.Tag] = errors.New("upstream 503")

	res := NewProfileAgent(fc, ps.Profile, testLogger).Execute(context.Background(), "resume")
	if res.Outcome.Reason != contractx.ReasonCapabilityError {
		t.Fatalf("reason = %q, want capability_error", res.Outcome.Reason)
	}
	if res.Value.Name != contractx.DefaultCandidateName {
		t.Fatalf("name = %q", res.Value.Name)
	}
	if n := fc.count(ps.Profile.Tag); n != 1 {
		t.Fatalf("capability calls = %d, want 1", n)
	}
}

func TestNilCapabilityIsAbsent(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	res := NewFollowUpAgent(nil, ps.FollowUp, testLogger).Execute(context.Background(), FollowUpInput{Name: "Jane", Role: "SRE"})
	if res.Outcome.Reason != contractx.ReasonCapabilityAbsent {
		t.Fatalf("reason = %q", res.Outcome.Reason)
	}
}

func TestRoundsAgentDecodes(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	tests := []struct {
		name       string
		reply      string
		want       contractx.Rounds
		wantFilled []string
	}{
		{
			name:  "object keeps key order",
			reply: `{"Round 2":{"name":"Behavioral","questions":["b1"]},"Round 1":{"name":"Technical","questions":["t1","t2"]}}`,
			want: contractx.Rounds{
				{Key: "Round 2", Round: contractx.Round{Name: "Behavioral", Questions: []string{"b1"}}},
				{Key: "Round 1", Round: contractx.Round{Name: "Technical", Questions: []string{"t1", "t2"}}},
			},
		},
		{
			name:  "focus is kept",
			reply: `{"Round 1":{"name":"Behavioral","focus":" teamwork ","questions":["b1"]},"Round 2":{"name":"Design","focus":3,"questions":[]}}`,
			want: contractx.Rounds{
				{Key: "Round 1", Round: contractx.Round{Name: "Behavioral", Focus: "teamwork", Questions: []string{"b1"}}},
				{Key: "Round 2", Round: contractx.Round{Name: "Design", Questions: []string{}}},
			},
		},
		{
			name:  "wrapped object",
			reply: `{"rounds":{"Round 1":{"name":"Technical","questions":["t1"]}}}`,
			want: contractx.Rounds{
				{Key: "Round 1", Round: contractx.Round{Name: "Technical", Questions: []string{"t1"}}},
			},
		},
		{
			name:  "array is keyed by position",
			reply: "```json\n[{\"round\":\"Technical\",\"questions\":[\"t1\"]},{\"name\":\"Design\",\"questions\":[]}]\n```",
			want: contractx.Rounds{
				{Key: "Round 1", Round: contractx.Round{Name: "Technical", Questions: []string{"t1"}}},
				{Key: "Round 2", Round: contractx.Round{Name: "Design", Questions: []string{}}},
			},
		},
		{
			name:  "missing fields are filled",
			reply: `{"Round 1":{}}`,
			want: contractx.Rounds{
				{Key: "Round 1", Round: contractx.Round{Name: "Round 1", Questions: []string{}}},
			},
			wantFilled: []string{"Round 1.name", "Round 1.questions"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fc := newFakeCapability(map[string]string{ps.Rounds.Tag: tt.reply})
			res := NewRoundsAgent(fc, ps, testLogger).Execute(context.Background(), RoundsInput{Role: "SRE"})
			if res.Outcome.Kind != contractx.OutcomeDecoded {
				t.Fatalf("outcome = %+v, want decoded", res.Outcome)
			}
			if diff := cmp.Diff(tt.want, res.Value); diff != "" {
				t.Fatalf("rounds mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantFilled, res.Outcome.Filled); diff != "" {
				t.Fatalf("filled mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundsAgentFallsBack(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	for _, reply := range []string{
		`{}`,
		`[]`,
		`{"Round 1":{"name":"T","questions":[1,2]}}`,
		`{"Round 1":{"name":"T","questions":"q"}}`,
		`{"Round 1":"q"}`,
		`"rounds"`,
		`{"Round 1":`,
	} {
		fc := newFakeCapability(map[string]string{ps.Rounds.Tag: reply})
		res := NewRoundsAgent(fc, ps, testLogger).Execute(context.Background(), RoundsInput{Role: "SRE"})
		if res.Outcome.Reason != contractx.ReasonMalformedResponse {
			t.Fatalf("reply %q: outcome = %+v, want malformed fallback", reply, res.Outcome)
		}
		if diff := cmp.Diff(DefaultRounds(), res.Value); diff != "" {
			t.Fatalf("reply %q: rounds mismatch (-want +got):\n%s", reply, diff)
		}
	}

	res := NewRoundsAgent(nil, ps, testLogger).Execute(context.Background(), RoundsInput{Role: "SRE"})
	if res.Outcome.Reason != contractx.ReasonCapabilityAbsent || res.Value.QuestionCount() != 1 {
		t.Fatalf("absent outcome = %+v, rounds = %+v", res.Outcome, res.Value)
	}
}

func TestRoundsFanOutKeepsCategoryOrder(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	cc := categoryCapability{
		replies: map[string]string{
			"behavioral":    `{"name":"Behavioral","questions":["b1"]}`,
			"technical":     `{"questions":["t1","t2"]}`,
			"system-design": `{"name":"Design","questions":["d1"]}`,
		},
		delay: map[string]time.Duration{"behavioral": 30 * time.Millisecond},
	}
	agent := NewRoundsAgent(cc, ps, testLogger, WithFanOut(FanOut{Enabled: true, Timeout: time.Second}))
	res := agent.Execute(context.Background(), RoundsInput{Role: "SRE"})

	want := contractx.Rounds{
		{Key: "Round 1", Round: contractx.Round{Name: "Behavioral", Questions: []string{"b1"}}},
		{Key: "Round 2", Round: contractx.Round{Name: "technical", Questions: []string{"t1", "t2"}}},
		{Key: "Round 3", Round: contractx.Round{Name: "Design", Questions: []string{"d1"}}},
	}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("rounds mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"technical.name"}, res.Outcome.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}
}

// Not parallel: goleak checks the goroutines of this test only.
func TestRoundsFanOutReplacesStalledBranch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	defer close(release)

	ps := testPrompts(t)
	cc := categoryCapability{
		replies: map[string]string{
			"behavioral": `{"name":"Behavioral","questions":["b1"]}`,
			"technical":  `{"name":"Technical","questions":["t1"]}`,
		},
		stall:   "technical",
		release: release,
	}
	agent := NewRoundsAgent(cc, ps, testLogger, WithFanOut(FanOut{
		Enabled:    true,
		Categories: []string{"behavioral", "technical", "system-design"},
		Limit:      2,
		Timeout:    50 * time.Millisecond,
	}))

	start := time.Now()
	res := agent.Execute(context.Background(), RoundsInput{Role: "SRE"})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("fan-out took %v, stalled branch was not abandoned", elapsed)
	}

	want := contractx.Rounds{
		{Key: "Round 1", Round: contractx.Round{Name: "Behavioral", Questions: []string{"b1"}}},
		{Key: "Round 2", Round: contractx.Round{Name: "technical", Questions: []string{"Describe project X."}}},
		{Key: "Round 3", Round: contractx.Round{Name: "system-design", Questions: []string{"Describe project X."}}},
	}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("rounds mismatch (-want +got):\n%s", diff)
	}
	if res.Outcome.Kind != contractx.OutcomeDecoded {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
	if diff := cmp.Diff([]string{"Round 2", "Round 3"}, res.Outcome.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundsFanOutFailedBranchKeepsSlot(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	cc := categoryCapability{
		replies: map[string]string{
			"behavioral":    `{"name":"Behavioral","questions":["b1"]}`,
			"technical":     `{"name":"Technical","questions":"not a list"}`,
			"system-design": `{"name":"Design","questions":["d1"]}`,
		},
	}
	agent := NewRoundsAgent(cc, ps, testLogger, WithFanOut(FanOut{Enabled: true, Timeout: time.Second}))
	res := agent.Execute(context.Background(), RoundsInput{Role: "SRE"})

	want := contractx.Rounds{
		{Key: "Round 1", Round: contractx.Round{Name: "Behavioral", Questions: []string{"b1"}}},
		{Key: "Round 2", Round: contractx.Round{Name: "technical", Questions: []string{"Describe project X."}}},
		{Key: "Round 3", Round: contractx.Round{Name: "Design", Questions: []string{"d1"}}},
	}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("rounds mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Round 2"}, res.Outcome.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundsFanOutNoBranchSucceeded(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	cc := categoryCapability{replies: map[string]string{"technical": `not json`}}
	agent := NewRoundsAgent(cc, ps, testLogger, WithFanOut(FanOut{Enabled: true, Timeout: time.Second}))
	res := agent.Execute(context.Background(), RoundsInput{Role: "SRE"})

	if res.Outcome.Reason != contractx.ReasonNoBranchSucceeded {
		t.Fatalf("outcome = %+v, want no_branch_succeeded", res.Outcome)
	}
	if diff := cmp.Diff(DefaultRounds(), res.Value); diff != "" {
		t.Fatalf("rounds mismatch (-want +got):\n%s", diff)
	}
}

// categoryCapability answers fan-out prompts by the category named in them.
type categoryCapability struct {
	replies map[string]string
	delay   map[string]time.Duration
	stall   string
	release <-chan struct{}
}

func (c categoryCapability) Invoke(ctx context.Context, prompt string, _ string) (string, error) {
	lower := strings.ToLower(prompt)
	for category, reply := range c.replies {
		if !strings.Contains(lower, "single "+category+" ") {
			continue
		}
		if category == c.stall {
			// Ignores ctx on purpose; only the test releases it.
			<-c.release
			return reply, nil
		}
		if d := c.delay[category]; d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return reply, nil
	}
	return "", contractx.ErrCapabilityAbsent
}

type scriptedAnswers struct {
	mu    sync.Mutex
	asked []string
	fail  map[string]bool
}

func (s *scriptedAnswers) Answer(_ context.Context, _ string, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, question)
	if s.fail[question] {
		return "", errors.New("stdin closed")
	}
	return "answer to " + question, nil
}

func fiveQuestionRounds() contractx.Rounds {
	return contractx.Rounds{
		{Key: "Round 1", Round: contractx.Round{Name: "Technical", Focus: "algorithms", Questions: []string{"q1", "q2", "q3"}}},
		{Key: "Round 2", Round: contractx.Round{Questions: []string{"q4", "q5"}}},
	}
}

func TestInterviewAgentAsksEveryQuestion(t *testing.T) {
	t.Parallel()

	session, err := statex.NewSession("run-1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	answers := &scriptedAnswers{fail: map[string]bool{"q2": true}}
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(10 * time.Millisecond)
		return tick
	}

	res, err := NewInterviewAgent(answers, testLogger).WithClock(clock).Execute(context.Background(), fiveQuestionRounds(), session)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	out := res.Value
	if out.Asked != 5 || out.Restored != 0 || len(out.Transcript) != 5 {
		t.Fatalf("asked=%d restored=%d transcript=%d", out.Asked, out.Restored, len(out.Transcript))
	}
	if out.Transcript[1].Answer != "" {
		t.Fatalf("failed answer = %q, want empty", out.Transcript[1].Answer)
	}
	if out.Transcript[3].Round != "Round 2" {
		t.Fatalf("unnamed round = %q, want key", out.Transcript[3].Round)
	}
	if out.Transcript[0].Focus != "algorithms" || out.Transcript[3].Focus != "" {
		t.Fatalf("focus = %q/%q", out.Transcript[0].Focus, out.Transcript[3].Focus)
	}
	for i, qa := range out.Transcript {
		if qa.Rubric != DefaultRubric() {
			t.Fatalf("transcript[%d].rubric = %+v", i, qa.Rubric)
		}
	}
	if out.Transcript[0].ElapsedMs != 10 {
		t.Fatalf("elapsed = %d, want 10", out.Transcript[0].ElapsedMs)
	}
	if diff := cmp.Diff([]string{"transcript[1].answer"}, res.Outcome.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}
	if session.Cursor != 5 || len(session.Checkpoints) != 5 {
		t.Fatalf("cursor=%d checkpoints=%d", session.Cursor, len(session.Checkpoints))
	}
}

func TestInterviewAgentResumesAtCursor(t *testing.T) {
	t.Parallel()

	prior, err := statex.NewSession("run-0", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := prior.Record(q, "earlier "+q, time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	session, err := statex.ResumeSession("run-1", prior.Checkpoints, 3, time.Now())
	if err != nil {
		t.Fatalf("ResumeSession() error = %v", err)
	}
	answers := &scriptedAnswers{}
	res, err := NewInterviewAgent(answers, testLogger).Execute(context.Background(), fiveQuestionRounds(), session)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if diff := cmp.Diff([]string{"q4", "q5"}, answers.asked); diff != "" {
		t.Fatalf("asked mismatch (-want +got):\n%s", diff)
	}
	out := res.Value
	if out.Restored != 3 || out.Asked != 2 {
		t.Fatalf("restored=%d asked=%d", out.Restored, out.Asked)
	}
	gotAnswers := make([]string, len(out.Transcript))
	for i, qa := range out.Transcript {
		gotAnswers[i] = qa.Answer
	}
	want := []string{"earlier q1", "earlier q2", "earlier q3", "answer to q4", "answer to q5"}
	if diff := cmp.Diff(want, gotAnswers); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
	if len(session.Checkpoints) != 5 {
		t.Fatalf("checkpoints = %d, want 5", len(session.Checkpoints))
	}
}

func TestInterviewAgentNilSession(t *testing.T) {
	t.Parallel()

	_, err := NewInterviewAgent(&scriptedAnswers{}, testLogger).Execute(context.Background(), DefaultRounds(), nil)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Execute() error = %v, want ErrValidation", err)
	}
}

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want *int
	}{
		{text: "Score: 6/10. Feedback: fine", want: ptr(6)},
		{text: "SCORE 10", want: ptr(10)},
		{text: "score: 0", want: nil},
		{text: "Score: 11/10", want: nil},
		{text: "Score: excellent", want: nil},
		{text: "7/10, nice", want: nil},
		{text: "In 2 words: score 9", want: ptr(2)},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseScore(tt.text)); diff != "" {
			t.Fatalf("ParseScore(%q) mismatch (-want +got):\n%s", tt.text, diff)
		}
	}
}

func TestCritiqueAgent(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	qa := contractx.QAPair{Round: "Technical", Focus: "algorithms", Question: "q1", Answer: "a1", Rubric: DefaultRubric()}

	fc := newFakeCapability(map[string]string{ps.Critique.Tag: "Score: 8/10. Feedback: Add metrics."})
	res := NewCritiqueAgent(fc, ps.Critique, testLogger).Execute(context.Background(), CritiqueInput{QA: qa})
	want := contractx.Critique{Question: "q1", Answer: "a1", Score: ptr(8), Feedback: "Add metrics."}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("critique mismatch (-want +got):\n%s", diff)
	}
	for _, part := range []string{"Round: Technical (focus: algorithms)", `{"structure":3,"depth":3,"examples":4}`} {
		if !strings.Contains(fc.prompts[0], part) {
			t.Fatalf("critique prompt missing %q: %s", part, fc.prompts[0])
		}
	}

	fc = newFakeCapability(map[string]string{ps.Critique.Tag: "  Solid answer overall.  "})
	res = NewCritiqueAgent(fc, ps.Critique, testLogger).Execute(context.Background(), CritiqueInput{QA: qa})
	if res.Value.Score != nil || res.Value.Feedback != "Solid answer overall." {
		t.Fatalf("critique = %+v", res.Value)
	}
	if diff := cmp.Diff([]string{"score"}, res.Outcome.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}

	res = NewCritiqueAgent(nil, ps.Critique, testLogger).Execute(context.Background(), CritiqueInput{QA: qa})
	want = contractx.Critique{Question: "q1", Answer: "a1", Feedback: DefaultFeedback}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("absent critique mismatch (-want +got):\n%s", diff)
	}
	if !res.Outcome.IsFallback() {
		t.Fatalf("outcome = %+v, want fallback", res.Outcome)
	}
}

func TestStudyPlanAgent(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	critiques := []contractx.Critique{{Question: "q1", Answer: "a1", Feedback: "Add metrics."}}

	fc := newFakeCapability(map[string]string{
		ps.StudyPlan.Tag: `{"study_plan":"Day 1: metrics","flashcards":[{"q":"What is p99?","a":"A latency percentile"}]}`,
	})
	res := NewStudyPlanAgent(fc, ps.StudyPlan, testLogger).Execute(context.Background(), critiques)
	want := contractx.StudyPlan{
		Plan:       "Day 1: metrics",
		Flashcards: []contractx.Flashcard{{Q: "What is p99?", A: "A latency percentile"}},
	}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(fc.prompts[0], `"feedback":"Add metrics."`) {
		t.Fatalf("prompt does not embed critiques: %s", fc.prompts[0])
	}

	fc = newFakeCapability(map[string]string{ps.StudyPlan.Tag: `{"study_plan":"Day 1"}`})
	res = NewStudyPlanAgent(fc, ps.StudyPlan, testLogger).Execute(context.Background(), critiques)
	if res.Value.Plan != "Day 1" || res.Value.Flashcards == nil || len(res.Value.Flashcards) != 0 {
		t.Fatalf("partial plan = %+v", res.Value)
	}
	if diff := cmp.Diff([]string{"flashcards"}, res.Outcome.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}

	fc = newFakeCapability(map[string]string{ps.StudyPlan.Tag: `{"study_plan":"Week 1: graphs","flashcards":"none"}`})
	res = NewStudyPlanAgent(fc, ps.StudyPlan, testLogger).Execute(context.Background(), critiques)
	want = contractx.StudyPlan{Plan: "Week 1: graphs", Flashcards: []contractx.Flashcard{}}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("mistyped flashcards plan mismatch (-want +got):\n%s", diff)
	}
	if res.Outcome.Kind != contractx.OutcomeDecoded {
		t.Fatalf("outcome = %+v, want decoded", res.Outcome)
	}
	if diff := cmp.Diff([]string{"flashcards"}, res.Outcome.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}

	fc = newFakeCapability(map[string]string{
		ps.StudyPlan.Tag: `{"study_plan":42,"flashcards":[{"q":"a","a":"b"},"loose",{"q":1},{"q":"c","a":"d"}]}`,
	})
	res = NewStudyPlanAgent(fc, ps.StudyPlan, testLogger).Execute(context.Background(), critiques)
	want = contractx.StudyPlan{
		Plan:       DefaultStudyPlanText,
		Flashcards: []contractx.Flashcard{{Q: "a", A: "b"}, {Q: "c", A: "d"}},
	}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("per-card plan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"study_plan", "flashcards[1]", "flashcards[2]"}, res.Outcome.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}

	fc = newFakeCapability(map[string]string{ps.StudyPlan.Tag: `plan: study`})
	res = NewStudyPlanAgent(fc, ps.StudyPlan, testLogger).Execute(context.Background(), nil)
	if diff := cmp.Diff(DefaultStudyPlan(), res.Value); diff != "" {
		t.Fatalf("fallback plan mismatch (-want +got):\n%s", diff)
	}
	if res.Outcome.Reason != contractx.ReasonMalformedResponse {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
}

func TestFollowUpAgent(t *testing.T) {
	t.Parallel()

	ps := testPrompts(t)
	critiques := []contractx.Critique{{Feedback: "Add metrics."}, {Feedback: "Discuss trade-offs."}}

	fc := newFakeCapability(map[string]string{ps.FollowUp.Tag: "Dear Jane, thanks."})
	res := NewFollowUpAgent(fc, ps.FollowUp, testLogger).Execute(context.Background(), FollowUpInput{Name: "Jane", Role: "SRE", Critiques: critiques})
	if res.Value != "Dear Jane, thanks." {
		t.Fatalf("email = %q", res.Value)
	}
	if !strings.Contains(fc.prompts[0], "Summary of critiques:\n- Add metrics.\n- Discuss trade-offs.") {
		t.Fatalf("prompt missing summary: %s", fc.prompts[0])
	}

	res = NewFollowUpAgent(nil, ps.FollowUp, testLogger).Execute(context.Background(), FollowUpInput{Name: "Jane", Role: "SRE"})
	if res.Value != DefaultFollowUp("Jane", "SRE") || !res.Outcome.IsFallback() {
		t.Fatalf("fallback email = %q, outcome = %+v", res.Value, res.Outcome)
	}
	if !strings.HasPrefix(DefaultFollowUp("", "SRE"), "Hi Candidate,") {
		t.Fatalf("blank name default = %q", DefaultFollowUp("", "SRE"))
	}
}

func TestStripFence(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n[1]\n```":           `[1]`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```json{\"a\":1}```":     `{"a":1}`,
	}
	for in, want := range tests {
		if got := stripFence(in); got != want {
			t.Fatalf("stripFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func ptr[T any](v T) *T { return &v }
