package workflow

// Action is a typed command against a workflow instance.
type Action string

const (
	ActionAuthorize                 Action = "authorize"
	ActionMakeVendorCalls           Action = "make_vendor_calls"
	ActionMakeWatchlistCheckCall    Action = "make_watchlist_check_call"
	ActionMakeDecision              Action = "make_decision"
	ActionDocCollected              Action = "doc_collected"
	ActionReviewCompleted           Action = "review_completed"
	ActionAsyncVendorCallsCompleted Action = "async_vendor_calls_completed"
)

// ReviewDecision is the outcome a human reviewer records when closing a
// pending review.
type ReviewDecision string

const (
	ReviewApproved ReviewDecision = "approved"
	ReviewDenied   ReviewDecision = "denied"
)

func (d ReviewDecision) IsValid() bool {
	return d == ReviewApproved || d == ReviewDenied
}
