package waterfall

import (
	"context"
	"sync"

	"vouch/internal/vendor"
	id "vouch/pkg/domain"
)

// MemoryAttemptStore is an in-memory AttemptStore for tests and local
// development. Intent locks are plain per-intent mutexes.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[id.IntentID][]vendor.Attempt
	locks    map[id.IntentID]*sync.Mutex
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		attempts: make(map[id.IntentID][]vendor.Attempt),
		locks:    make(map[id.IntentID]*sync.Mutex),
	}
}

func (s *MemoryAttemptStore) Create(_ context.Context, attempt vendor.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.IntentID] = append(s.attempts[attempt.IntentID], attempt)
	return nil
}

func (s *MemoryAttemptStore) LatestByIntent(_ context.Context, intentID id.IntentID) (map[vendor.Kind]vendor.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[vendor.Kind]vendor.Attempt)
	for _, att := range s.attempts[intentID] {
		latest[att.Vendor] = att
	}
	return latest, nil
}

func (s *MemoryAttemptStore) ListByIntent(_ context.Context, intentID id.IntentID) ([]vendor.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]vendor.Attempt, len(s.attempts[intentID]))
	copy(out, s.attempts[intentID])
	return out, nil
}

func (s *MemoryAttemptStore) WithIntentLock(ctx context.Context, intentID id.IntentID, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	lock, ok := s.locks[intentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[intentID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}
