package tenant

import (
	"context"

	id "vouch/pkg/domain"
)

// Store persists onboarding configuration snapshots. Snapshots are immutable:
// Save inserts a new version, it never updates one in place.
type Store interface {
	Save(ctx context.Context, cfg OnboardingConfig) error
	Get(ctx context.Context, configID id.ConfigID) (OnboardingConfig, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]OnboardingConfig, error)
}
