package contract

import (
	"fmt"
	"strings"
)

type OutcomeKind string

const (
	OutcomeDecoded      OutcomeKind = "decoded"
	OutcomeUsedFallback OutcomeKind = "used_fallback"
)

// Fallback reasons.
const (
	ReasonCapabilityAbsent  = "capability_absent"
	ReasonCapabilityError   = "capability_error"
	ReasonMalformedResponse = "malformed_response"
	ReasonNoBranchSucceeded = "no_branch_succeeded"
)

// Outcome records which path a stage took to produce its value.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	// Filled lists sub-fields that were defaulted on an otherwise decoded value.
	Filled []string
}

func (o Outcome) IsFallback() bool {
	return o.Kind == OutcomeUsedFallback
}

// Gap reports the filled sub-fields as an ErrValidationGap, or nil.
func (o Outcome) Gap() error {
	if len(o.Filled) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidationGap, strings.Join(o.Filled, ", "))
}

// Result is the tagged output of a stage agent.
type Result[T any] struct {
	Value   T
	Outcome Outcome
}

func Decoded[T any](v T, filled ...string) Result[T] {
	return Result[T]{Value: v, Outcome: Outcome{Kind: OutcomeDecoded, Filled: filled}}
}

func UsedFallback[T any](v T, reason string) Result[T] {
	return Result[T]{Value: v, Outcome: Outcome{Kind: OutcomeUsedFallback, Reason: reason}}
}

func (r Result[T]) Diagnostic(stage Stage) StageDiagnostic {
	return StageDiagnostic{
		Stage:   stage,
		Outcome: r.Outcome.Kind,
		Reason:  r.Outcome.Reason,
		Filled:  r.Outcome.Filled,
	}
}
