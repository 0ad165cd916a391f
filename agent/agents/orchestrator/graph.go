package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/interviewforge/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileRunGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now(), o.log)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("extract_profile",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExtractProfile(ctx, in, o.stages.profile)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node extract_profile: %w", err)
	}

	if err := graph.AddLambdaNode("generate_rounds",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.GenerateRounds(ctx, in, o.stages.rounds)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node generate_rounds: %w", err)
	}

	if err := graph.AddLambdaNode("conduct_interview",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ConductInterview(ctx, in, o.stages.interview)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node conduct_interview: %w", err)
	}

	if err := graph.AddLambdaNode("critique_answers",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CritiqueAnswers(ctx, in, o.stages.critique)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node critique_answers: %w", err)
	}

	if err := graph.AddLambdaNode("plan_study",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PlanStudy(ctx, in, o.stages.studyPlan)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node plan_study: %w", err)
	}

	if err := graph.AddLambdaNode("draft_followup",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DraftFollowUp(ctx, in, o.stages.followUp)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node draft_followup: %w", err)
	}

	if err := graph.AddLambdaNode("write_artifacts",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.WriteArtifacts(ctx, in, o.sink, o.now())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node write_artifacts: %w", err)
	}

	if err := graph.AddLambdaNode("persist_run",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PersistRun(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_run: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_run",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeRun(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_run: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "extract_profile"},
		{"extract_profile", "generate_rounds"},
		{"generate_rounds", "conduct_interview"},
		{"conduct_interview", "critique_answers"},
		{"critique_answers", "plan_study"},
		{"plan_study", "draft_followup"},
		{"draft_followup", "write_artifacts"},
		// Artifacts precede persistence: the stored record carries the
		// artifact location, and a run that fails to persist still leaves
		// checkpoints.json for --resume-from.
		{"write_artifacts", "persist_run"},
		{"persist_run", "finalize_run"},
		{"finalize_run", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.run_interview"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
