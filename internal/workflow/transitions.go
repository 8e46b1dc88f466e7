package workflow

import (
	"vouch/internal/tenant"
	dErrors "vouch/pkg/domain-errors"
)

// transitions holds each kind's legal moves. An action maps to the set of
// steps it may land on; most actions have exactly one target, MakeDecision
// chooses among its targets based on the decision outcome.
var transitions = map[tenant.WorkflowKind]map[Step]map[Action][]Step{
	tenant.WorkflowKindKyc: {
		StepDataCollection: {
			ActionAuthorize: {StepVendorCalls},
		},
		StepVendorCalls: {
			ActionMakeVendorCalls:        {StepDecisioning},
			ActionMakeWatchlistCheckCall: {StepDecisioning},
		},
		StepDecisioning: {
			ActionMakeDecision: {StepComplete, StepDocCollection},
		},
		StepDocCollection: {
			ActionDocCollected: {StepDecisioning},
		},
	},
	tenant.WorkflowKindAlpacaKyc: {
		StepDataCollection: {
			ActionAuthorize: {StepVendorCalls},
		},
		StepVendorCalls: {
			ActionMakeVendorCalls:        {StepDecisioning},
			ActionMakeWatchlistCheckCall: {StepDecisioning},
		},
		StepDecisioning: {
			ActionMakeDecision: {StepComplete, StepDocCollection, StepPendingReview},
		},
		StepDocCollection: {
			ActionDocCollected: {StepDecisioning},
		},
		StepPendingReview: {
			ActionReviewCompleted: {StepComplete},
		},
	},
	tenant.WorkflowKindKyb: {
		StepDataCollection: {
			ActionAuthorize: {StepVendorCalls},
		},
		StepVendorCalls: {
			ActionMakeVendorCalls: {StepAwaitingAsyncVendors},
		},
		StepAwaitingAsyncVendors: {
			ActionAsyncVendorCallsCompleted: {StepDecisioning},
		},
		StepDecisioning: {
			ActionMakeDecision: {StepComplete},
		},
	},
	tenant.WorkflowKindDocument: {
		StepDataCollection: {
			ActionAuthorize: {StepDocCollection},
		},
		StepDocCollection: {
			ActionDocCollected: {StepDecisioning},
		},
		StepDecisioning: {
			ActionMakeDecision: {StepComplete},
		},
	},
}

// nextSteps returns the legal target steps for an action in the given state.
// An illegal pairing returns an error naming the state and action; callers
// must make no writes on that path.
func nextSteps(state State, action Action) ([]Step, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	targets, ok := transitions[state.Kind][state.Step][action]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeIllegalTransition,
			"action %q is not legal in %s step %q", string(action), string(state.Kind), string(state.Step))
	}
	return targets, nil
}

// allowsTarget reports whether the action may land on the given step.
func allowsTarget(targets []Step, step Step) bool {
	for _, t := range targets {
		if t == step {
			return true
		}
	}
	return false
}
