// Package signal persists reason codes as risk signals tied to the vendor
// call that produced them. Signals are append-only: a re-run writes a new
// batch and soft-deactivates the old one so historical decisions stay
// reconstructable.
package signal

import (
	"context"
	"time"

	"vouch/internal/reason"
	"vouch/internal/vendor"
	id "vouch/pkg/domain"
)

// RiskSignal is the persisted form of one reason code.
type RiskSignal struct {
	ID         id.SignalID
	WorkflowID id.WorkflowID
	Code       reason.Code
	Vendor     vendor.Kind
	AttemptID  id.AttemptID

	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// Active reports whether the signal still contributes to the current decision.
func (s RiskSignal) Active() bool {
	return s.DeactivatedAt == nil
}

// NewBatch builds one signal per code for a single vendor attempt, with set
// deduplication applied before construction.
func NewBatch(workflowID id.WorkflowID, vendorKind vendor.Kind, attemptID id.AttemptID, codes []reason.Code, now time.Time) []RiskSignal {
	deduped := reason.Dedupe(codes)
	signals := make([]RiskSignal, 0, len(deduped))
	for _, code := range deduped {
		signals = append(signals, RiskSignal{
			ID:         id.NewSignalID(),
			WorkflowID: workflowID,
			Code:       code,
			Vendor:     vendorKind,
			AttemptID:  attemptID,
			CreatedAt:  now,
		})
	}
	return signals
}

// Store persists risk signals. CreateBatch must participate in the caller's
// transaction (via pkg/platform/tx) so signals commit atomically with the
// state transition that caused them.
type Store interface {
	CreateBatch(ctx context.Context, signals []RiskSignal) error
	ListActive(ctx context.Context, workflowID id.WorkflowID) ([]RiskSignal, error)
	DeactivateForWorkflow(ctx context.Context, workflowID id.WorkflowID, now time.Time) error
}
