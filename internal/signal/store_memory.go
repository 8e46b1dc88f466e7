package signal

import (
	"context"
	"sync"
	"time"

	id "vouch/pkg/domain"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	signals []RiskSignal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreateBatch(_ context.Context, signals []RiskSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, signals...)
	return nil
}

func (s *MemoryStore) ListActive(_ context.Context, workflowID id.WorkflowID) ([]RiskSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []RiskSignal
	for _, sig := range s.signals {
		if sig.WorkflowID == workflowID && sig.Active() {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeactivateForWorkflow(_ context.Context, workflowID id.WorkflowID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.signals {
		if s.signals[i].WorkflowID == workflowID && s.signals[i].Active() {
			at := now
			s.signals[i].DeactivatedAt = &at
		}
	}
	return nil
}

// All returns every stored signal, active or not. Test helper.
func (s *MemoryStore) All() []RiskSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RiskSignal, len(s.signals))
	copy(out, s.signals)
	return out
}
