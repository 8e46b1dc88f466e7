package waterfall

import (
	"context"

	"vouch/internal/vendor"
	id "vouch/pkg/domain"
)

// AttemptStore persists vendor attempts and serializes access to the attempt
// set of one decision intent.
type AttemptStore interface {
	Create(ctx context.Context, attempt vendor.Attempt) error

	// LatestByIntent returns, per vendor, the most recent attempt recorded
	// for the intent. Must be read under WithIntentLock when used to decide
	// resumption.
	LatestByIntent(ctx context.Context, intentID id.IntentID) (map[vendor.Kind]vendor.Attempt, error)

	// ListByIntent returns every attempt recorded for the intent, oldest
	// first. Used for audit.
	ListByIntent(ctx context.Context, intentID id.IntentID) ([]vendor.Attempt, error)

	// WithIntentLock runs fn while holding a mutual-exclusion lock scoped to
	// the intent, so two concurrent waterfall runs cannot both dispatch a
	// call to the same vendor.
	WithIntentLock(ctx context.Context, intentID id.IntentID, fn func(ctx context.Context) error) error
}
