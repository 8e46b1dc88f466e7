package workflow

import (
	"context"
	"time"

	id "vouch/pkg/domain"
)

// Store persists workflow instances and their transition log.
//
// Transact runs fn inside one atomic unit of work; GetForUpdate must take an
// exclusive lock on the instance for the duration of that unit, so
// read-validate-write is indivisible for concurrent callers on the same
// workflow.
type Store interface {
	Create(ctx context.Context, inst WorkflowInstance) error
	Get(ctx context.Context, workflowID id.WorkflowID) (WorkflowInstance, error)
	GetForUpdate(ctx context.Context, workflowID id.WorkflowID) (WorkflowInstance, error)
	Update(ctx context.Context, inst WorkflowInstance) error

	// Deactivate retires an instance for "active workflow" lookups without
	// touching its timestamps.
	Deactivate(ctx context.Context, workflowID id.WorkflowID, now time.Time) error
	ActiveForApplicant(ctx context.Context, applicantID id.ApplicantID, configID id.ConfigID) (WorkflowInstance, bool, error)

	AppendEvent(ctx context.Context, event TransitionEvent) error
	ListEvents(ctx context.Context, workflowID id.WorkflowID) ([]TransitionEvent, error)

	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}
