package workflow

import (
	"time"

	"github.com/google/uuid"

	"vouch/internal/tenant"
	id "vouch/pkg/domain"
)

// Status is the coarse externally visible outcome of a workflow.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusPending    Status = "pending"
	StatusPass       Status = "pass"
	StatusFail       Status = "fail"
)

// CompositeStatus is the pair a tenant observes. Side effects fire only when
// it changes into a terminal value.
type CompositeStatus struct {
	Status         Status
	RequiresReview bool
}

// Terminal reports whether the composite status is an end state.
func (c CompositeStatus) Terminal() bool {
	return c.Status == StatusPass || c.Status == StatusFail
}

// Decision is the recorded pass/fail outcome once decisioning concludes.
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionFail Decision = "fail"
)

// WorkflowInstance is the durable per-applicant state. It is mutated only
// through validated transitions; a superseded instance is deactivated, never
// rewritten.
type WorkflowInstance struct {
	ID          id.WorkflowID
	TenantID    id.TenantID
	ApplicantID id.ApplicantID
	ConfigID    id.ConfigID
	IntentID    id.IntentID

	State          State
	Status         Status
	RequiresReview bool
	Decision       Decision

	AuthorizedAt   *time.Time
	DecisionMadeAt *time.Time
	CompletedAt    *time.Time

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInstance starts a fresh workflow against a configuration snapshot. Each
// instance gets its own decision intent so vendor attempts never leak across
// redos.
func NewInstance(cfg tenant.OnboardingConfig, applicantID id.ApplicantID, now time.Time) WorkflowInstance {
	return WorkflowInstance{
		ID:          id.NewWorkflowID(),
		TenantID:    cfg.TenantID,
		ApplicantID: applicantID,
		ConfigID:    cfg.ID,
		IntentID:    id.NewIntentID(),
		State:       NewState(cfg.Kind),
		Status:      StatusIncomplete,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Composite returns the externally visible status pair.
func (w WorkflowInstance) Composite() CompositeStatus {
	return CompositeStatus{Status: w.Status, RequiresReview: w.RequiresReview}
}

// TransitionEvent is one append-only log entry per accepted transition.
type TransitionEvent struct {
	ID         uuid.UUID
	WorkflowID id.WorkflowID
	FromStep   Step
	ToStep     Step
	Action     Action
	Actor      string
	CreatedAt  time.Time
}
