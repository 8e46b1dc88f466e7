package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/tenant"
	dErrors "vouch/pkg/domain-errors"
)

func TestNextSteps(t *testing.T) {
	cases := []struct {
		name    string
		state   State
		action  Action
		want    []Step
		illegal bool
	}{
		{
			name:   "kyc authorize from data collection",
			state:  State{Kind: tenant.WorkflowKindKyc, Step: StepDataCollection},
			action: ActionAuthorize,
			want:   []Step{StepVendorCalls},
		},
		{
			name:   "kyc decisioning may complete or step up",
			state:  State{Kind: tenant.WorkflowKindKyc, Step: StepDecisioning},
			action: ActionMakeDecision,
			want:   []Step{StepComplete, StepDocCollection},
		},
		{
			name:   "kyc watchlist-only screening path",
			state:  State{Kind: tenant.WorkflowKindKyc, Step: StepVendorCalls},
			action: ActionMakeWatchlistCheckCall,
			want:   []Step{StepDecisioning},
		},
		{
			name:    "vendor calls before authorization is illegal",
			state:   State{Kind: tenant.WorkflowKindKyc, Step: StepDataCollection},
			action:  ActionMakeVendorCalls,
			illegal: true,
		},
		{
			name:    "no action is legal once complete",
			state:   State{Kind: tenant.WorkflowKindKyc, Step: StepComplete},
			action:  ActionMakeDecision,
			illegal: true,
		},
		{
			name:   "alpaca decisioning may route to review",
			state:  State{Kind: tenant.WorkflowKindAlpacaKyc, Step: StepDecisioning},
			action: ActionMakeDecision,
			want:   []Step{StepComplete, StepDocCollection, StepPendingReview},
		},
		{
			name:   "alpaca review resolves to complete",
			state:  State{Kind: tenant.WorkflowKindAlpacaKyc, Step: StepPendingReview},
			action: ActionReviewCompleted,
			want:   []Step{StepComplete},
		},
		{
			name:    "plain kyc has no review action",
			state:   State{Kind: tenant.WorkflowKindKyc, Step: StepDecisioning},
			action:  ActionReviewCompleted,
			illegal: true,
		},
		{
			name:   "kyb vendor calls await async vendors",
			state:  State{Kind: tenant.WorkflowKindKyb, Step: StepVendorCalls},
			action: ActionMakeVendorCalls,
			want:   []Step{StepAwaitingAsyncVendors},
		},
		{
			name:   "kyb async completion unblocks decisioning",
			state:  State{Kind: tenant.WorkflowKindKyb, Step: StepAwaitingAsyncVendors},
			action: ActionAsyncVendorCallsCompleted,
			want:   []Step{StepDecisioning},
		},
		{
			name:   "document kind authorizes straight into doc collection",
			state:  State{Kind: tenant.WorkflowKindDocument, Step: StepDataCollection},
			action: ActionAuthorize,
			want:   []Step{StepDocCollection},
		},
		{
			name:    "document kind never calls identity vendors",
			state:   State{Kind: tenant.WorkflowKindDocument, Step: StepDataCollection},
			action:  ActionMakeVendorCalls,
			illegal: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := nextSteps(tc.state, tc.action)
			if tc.illegal {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextStepsRejectsCrossKindState(t *testing.T) {
	// A step outside the kind's universe is a corrupted state, not a bad
	// action, and surfaces as an invariant violation before table lookup.
	_, err := nextSteps(State{Kind: tenant.WorkflowKindKyc, Step: StepPendingReview}, ActionReviewCompleted)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestStateValidateRejectsCrossKindSteps(t *testing.T) {
	cases := []struct {
		state State
		valid bool
	}{
		{State{Kind: tenant.WorkflowKindKyc, Step: StepVendorCalls}, true},
		{State{Kind: tenant.WorkflowKindKyc, Step: StepPendingReview}, false},
		{State{Kind: tenant.WorkflowKindKyc, Step: StepAwaitingAsyncVendors}, false},
		{State{Kind: tenant.WorkflowKindKyb, Step: StepAwaitingAsyncVendors}, true},
		{State{Kind: tenant.WorkflowKindKyb, Step: StepDocCollection}, false},
		{State{Kind: tenant.WorkflowKindDocument, Step: StepVendorCalls}, false},
		{State{Kind: "unknown", Step: StepDataCollection}, false},
	}
	for _, tc := range cases {
		err := tc.state.Validate()
		if tc.valid {
			assert.NoError(t, err, "%s/%s", tc.state.Kind, tc.state.Step)
		} else {
			assert.Error(t, err, "%s/%s", tc.state.Kind, tc.state.Step)
			if err != nil {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			}
		}
	}
}
