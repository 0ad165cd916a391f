package contract

import "context"

// TextCapability is the external generation collaborator. An empty response
// and a returned error are both treated as absent by callers.
type TextCapability interface {
	Invoke(ctx context.Context, prompt string, tag string) (string, error)
}

// AnswerProvider supplies the candidate's answer to one interview question.
type AnswerProvider interface {
	Answer(ctx context.Context, round string, question string) (string, error)
}

// RunStore is the durable, append-only history of completed runs.
type RunStore interface {
	SaveRun(ctx context.Context, run RunSummary) error
	ListRuns() []RunSummary
}

// OutputSink receives the artifact bundle of a completed run. It returns a
// location reference (a directory, a message id) or an error.
type OutputSink interface {
	Write(ctx context.Context, bundle ArtifactBundle) (string, error)
}
