// Package tenant models the immutable configuration snapshot an onboarding
// runs against: which workflow kind applies, which vendors are enabled and in
// what order, and the AML policy. The core reads these snapshots and never
// mutates them; authoring and storage of tenant configuration live elsewhere.
package tenant

import (
	"vouch/internal/policy"
	"vouch/internal/vendor"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
)

// WorkflowKind selects which onboarding flow a configuration drives.
type WorkflowKind string

const (
	WorkflowKindKyc       WorkflowKind = "kyc"
	WorkflowKindAlpacaKyc WorkflowKind = "alpaca_kyc"
	WorkflowKindKyb       WorkflowKind = "kyb"
	WorkflowKindDocument  WorkflowKind = "document"
)

func (k WorkflowKind) IsValid() bool {
	switch k {
	case WorkflowKindKyc, WorkflowKindAlpacaKyc, WorkflowKindKyb, WorkflowKindDocument:
		return true
	default:
		return false
	}
}

// VendorControls is the tenant's vendor enablement. Order is priority order
// for the waterfall; a vendor absent from the list is never attempted and
// never recorded.
type VendorControls struct {
	Enabled []vendor.Kind
}

// EnabledVendors returns the priority-ordered vendor list.
func (c VendorControls) EnabledVendors() []vendor.Kind {
	return c.Enabled
}

// OnboardingConfig is one immutable configuration snapshot.
type OnboardingConfig struct {
	ID       id.ConfigID
	TenantID id.TenantID

	Kind    WorkflowKind
	Vendors VendorControls
	Aml     policy.AmlPolicy

	// RequiredFields names the applicant fields this configuration collects.
	RequiredFields []string
}

// Validate enforces authoring-time constraints; a config that reaches the
// workflow is assumed valid.
func (c OnboardingConfig) Validate() error {
	if !c.Kind.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown workflow kind %q", string(c.Kind))
	}
	for _, v := range c.Vendors.Enabled {
		if !v.IsValid() {
			return dErrors.Newf(dErrors.CodeValidation, "unknown vendor %q", v.String())
		}
	}
	return c.Aml.Validate()
}
