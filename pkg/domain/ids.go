// Package domain holds shared identifier types. Each ID is a distinct type
// over uuid.UUID so the compiler rejects cross-entity mixups.
package domain

import (
	"github.com/google/uuid"

	dErrors "vouch/pkg/domain-errors"
)

type (
	// TenantID identifies the organization running verifications.
	TenantID uuid.UUID

	// ApplicantID identifies the person or business being verified.
	ApplicantID uuid.UUID

	// WorkflowID identifies one onboarding workflow instance.
	WorkflowID uuid.UUID

	// ConfigID identifies an immutable onboarding configuration snapshot.
	ConfigID uuid.UUID

	// IntentID groups the vendor calls made for one decisioning purpose.
	IntentID uuid.UUID

	// AttemptID identifies one persisted vendor call attempt.
	AttemptID uuid.UUID

	// SignalID identifies one persisted risk signal.
	SignalID uuid.UUID
)

func (id TenantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ApplicantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id WorkflowID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ConfigID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id IntentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SignalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id TenantID) String() string    { return uuid.UUID(id).String() }
func (id ApplicantID) String() string { return uuid.UUID(id).String() }
func (id WorkflowID) String() string  { return uuid.UUID(id).String() }
func (id ConfigID) String() string    { return uuid.UUID(id).String() }
func (id IntentID) String() string    { return uuid.UUID(id).String() }
func (id AttemptID) String() string   { return uuid.UUID(id).String() }
func (id SignalID) String() string    { return uuid.UUID(id).String() }

func NewTenantID() TenantID       { return TenantID(uuid.New()) }
func NewApplicantID() ApplicantID { return ApplicantID(uuid.New()) }
func NewWorkflowID() WorkflowID   { return WorkflowID(uuid.New()) }
func NewConfigID() ConfigID       { return ConfigID(uuid.New()) }
func NewIntentID() IntentID       { return IntentID(uuid.New()) }
func NewAttemptID() AttemptID     { return AttemptID(uuid.New()) }
func NewSignalID() SignalID       { return SignalID(uuid.New()) }

// parseUUID enforces the invariant that IDs are valid, non-empty, non-nil UUIDs.
func parseUUID(raw string, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be empty", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", kind)
	}
	return parsed, nil
}

func ParseTenantID(raw string) (TenantID, error) {
	u, err := parseUUID(raw, "tenant id")
	return TenantID(u), err
}

func ParseApplicantID(raw string) (ApplicantID, error) {
	u, err := parseUUID(raw, "applicant id")
	return ApplicantID(u), err
}

func ParseWorkflowID(raw string) (WorkflowID, error) {
	u, err := parseUUID(raw, "workflow id")
	return WorkflowID(u), err
}

func ParseConfigID(raw string) (ConfigID, error) {
	u, err := parseUUID(raw, "config id")
	return ConfigID(u), err
}

func ParseIntentID(raw string) (IntentID, error) {
	u, err := parseUUID(raw, "intent id")
	return IntentID(u), err
}
