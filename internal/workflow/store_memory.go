package workflow

import (
	"context"
	"sync"
	"time"

	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
)

// MemoryStore is an in-memory Store for tests and local development. Transact
// serializes all units of work behind one mutex, which gives the same
// read-validate-write atomicity the row lock gives the postgres store.
type MemoryStore struct {
	txMu sync.Mutex

	mu        sync.Mutex
	instances map[id.WorkflowID]WorkflowInstance
	events    map[id.WorkflowID][]TransitionEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instances: make(map[id.WorkflowID]WorkflowInstance),
		events:    make(map[id.WorkflowID][]TransitionEvent),
	}
}

func (s *MemoryStore) Create(_ context.Context, inst WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[inst.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "workflow %s already exists", inst.ID.String())
	}
	s.instances[inst.ID] = inst
	return nil
}

func (s *MemoryStore) Get(_ context.Context, workflowID id.WorkflowID) (WorkflowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[workflowID]
	if !ok {
		return WorkflowInstance{}, dErrors.Newf(dErrors.CodeNotFound, "workflow %s not found", workflowID.String())
	}
	return inst, nil
}

func (s *MemoryStore) GetForUpdate(ctx context.Context, workflowID id.WorkflowID) (WorkflowInstance, error) {
	return s.Get(ctx, workflowID)
}

func (s *MemoryStore) Update(_ context.Context, inst WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[inst.ID]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "workflow %s not found", inst.ID.String())
	}
	s.instances[inst.ID] = inst
	return nil
}

func (s *MemoryStore) Deactivate(_ context.Context, workflowID id.WorkflowID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[workflowID]
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "workflow %s not found", workflowID.String())
	}
	inst.Active = false
	inst.UpdatedAt = now
	s.instances[workflowID] = inst
	return nil
}

func (s *MemoryStore) ActiveForApplicant(_ context.Context, applicantID id.ApplicantID, configID id.ConfigID) (WorkflowInstance, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.instances {
		if inst.Active && inst.ApplicantID == applicantID && inst.ConfigID == configID {
			return inst, true, nil
		}
	}
	return WorkflowInstance{}, false, nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, event TransitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.WorkflowID] = append(s.events[event.WorkflowID], event)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, workflowID id.WorkflowID) ([]TransitionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TransitionEvent, len(s.events[workflowID]))
	copy(out, s.events[workflowID])
	return out, nil
}

func (s *MemoryStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}
