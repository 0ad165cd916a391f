package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tanpawarit/interviewforge/agent/answer"
	stagex "github.com/tanpawarit/interviewforge/agent/agents/stage"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	nodex "github.com/tanpawarit/interviewforge/agent/nodes/orchestrator"
	promptx "github.com/tanpawarit/interviewforge/agent/prompt"
)

type Config struct {
	FanOut stagex.FanOut
}

// Deps are the collaborators of a run. Capability is the default for every
// generating stage; StageCapabilities overrides it per stage.
type Deps struct {
	Capability        contractx.TextCapability
	StageCapabilities map[contractx.Stage]contractx.TextCapability
	Answers           contractx.AnswerProvider
	Store             contractx.RunStore
	Sink              contractx.OutputSink
	Prompts           *promptx.PromptSet
	Logger            *zerolog.Logger
}

type stages struct {
	profile   *stagex.ProfileAgent
	rounds    *stagex.RoundsAgent
	interview *stagex.InterviewAgent
	critique  *stagex.CritiqueAgent
	studyPlan *stagex.StudyPlanAgent
	followUp  *stagex.FollowUpAgent
}

// Orchestrator runs the interview pipeline. A single value is safe for
// concurrent runs; all run state lives in the graph state.
type Orchestrator struct {
	store contractx.RunStore
	sink  contractx.OutputSink
	log   zerolog.Logger

	stages stages

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	return newOrchestrator(cfg, deps, time.Now)
}

func newOrchestrator(cfg Config, deps Deps, now func() time.Time) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, errors.New("run store is required")
	}

	prompts := deps.Prompts
	if prompts == nil {
		loaded, err := promptx.LoadPromptSet()
		if err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
		prompts = &loaded
	}

	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	answers := deps.Answers
	if answers == nil {
		answers = answer.Canned{}
	}

	capFor := func(stage contractx.Stage) contractx.TextCapability {
		if c, ok := deps.StageCapabilities[stage]; ok && c != nil {
			return c
		}
		return deps.Capability
	}

	var roundsOpts []stagex.RoundsOption
	if cfg.FanOut.Enabled {
		roundsOpts = append(roundsOpts, stagex.WithFanOut(cfg.FanOut))
	}

	o := &Orchestrator{
		store: deps.Store,
		sink:  deps.Sink,
		log:   logger,
		stages: stages{
			profile:   stagex.NewProfileAgent(capFor(contractx.StageProfile), prompts.Profile, logger),
			rounds:    stagex.NewRoundsAgent(capFor(contractx.StageRounds), *prompts, logger, roundsOpts...),
			interview: stagex.NewInterviewAgent(answers, logger).WithClock(now),
			critique:  stagex.NewCritiqueAgent(capFor(contractx.StageCritique), prompts.Critique, logger),
			studyPlan: stagex.NewStudyPlanAgent(capFor(contractx.StageStudyPlan), prompts.StudyPlan, logger),
			followUp:  stagex.NewFollowUpAgent(capFor(contractx.StageFollowUp), prompts.FollowUp, logger),
		},
		now:   now,
		newID: uuid.NewString,
	}

	graphRunner, err := o.compileRunGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

type runOptions struct {
	resumption *contractx.Resumption
	runID      string
}

type RunOption func(*runOptions)

// WithResumption continues the interview from a prior checkpoint trail.
func WithResumption(r contractx.Resumption) RunOption {
	return func(o *runOptions) {
		o.resumption = &r
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) RunOption {
	return func(o *runOptions) {
		o.runID = id
	}
}

// Run executes one interview end to end and returns the persisted summary.
func (o *Orchestrator) Run(ctx context.Context, resumeText, role string, opts ...RunOption) (*contractx.RunSummary, error) {
	ro := runOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&ro)
		}
	}
	if ro.runID == "" {
		ro.runID = o.newID()
	}

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		RunID:      ro.runID,
		ResumeText: resumeText,
		Role:       role,
		Resumption: ro.resumption,
	})
	if err != nil {
		return nil, err
	}
	return &out.Summary, nil
}
