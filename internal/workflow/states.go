// Package workflow implements the durable per-applicant onboarding state
// machine. Each workflow kind owns a closed set of steps; transitions are
// validated against a fixed per-kind table and persisted together with an
// append-only transition log. Side effects ride the transactional outbox and
// fire only when the externally visible composite status changes into a
// terminal value.
package workflow

import (
	"vouch/internal/tenant"
	dErrors "vouch/pkg/domain-errors"
)

// Step is one position inside a workflow. Not every step is legal for every
// kind; State.Validate rejects cross-kind combinations.
type Step string

const (
	StepDataCollection       Step = "data_collection"
	StepVendorCalls          Step = "vendor_calls"
	StepAwaitingAsyncVendors Step = "awaiting_async_vendors"
	StepDocCollection        Step = "doc_collection"
	StepDecisioning          Step = "decisioning"
	StepPendingReview        Step = "pending_review"
	StepComplete             Step = "complete"
)

// State tags a step with the workflow kind that owns it.
type State struct {
	Kind tenant.WorkflowKind
	Step Step
}

// stepsByKind is each kind's closed step set.
var stepsByKind = map[tenant.WorkflowKind]map[Step]struct{}{
	tenant.WorkflowKindKyc: {
		StepDataCollection: {},
		StepVendorCalls:    {},
		StepDecisioning:    {},
		StepDocCollection:  {},
		StepComplete:       {},
	},
	tenant.WorkflowKindAlpacaKyc: {
		StepDataCollection: {},
		StepVendorCalls:    {},
		StepDecisioning:    {},
		StepDocCollection:  {},
		StepPendingReview:  {},
		StepComplete:       {},
	},
	tenant.WorkflowKindKyb: {
		StepDataCollection:       {},
		StepVendorCalls:          {},
		StepAwaitingAsyncVendors: {},
		StepDecisioning:          {},
		StepComplete:             {},
	},
	tenant.WorkflowKindDocument: {
		StepDataCollection: {},
		StepDocCollection:  {},
		StepDecisioning:    {},
		StepComplete:       {},
	},
}

// NewState returns the initial state for a kind. Every kind starts in data
// collection.
func NewState(kind tenant.WorkflowKind) State {
	return State{Kind: kind, Step: StepDataCollection}
}

// Validate rejects steps that do not belong to the state's kind.
func (s State) Validate() error {
	steps, ok := stepsByKind[s.Kind]
	if !ok {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown workflow kind %q", string(s.Kind))
	}
	if _, ok := steps[s.Step]; !ok {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "step %q does not belong to workflow kind %q", string(s.Step), string(s.Kind))
	}
	return nil
}

// Terminal reports whether the workflow has reached its final step.
func (s State) Terminal() bool {
	return s.Step == StepComplete
}
