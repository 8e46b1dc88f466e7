package tenant

import (
	"context"
	"sync"

	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	pkgstrings "vouch/pkg/platform/strings"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	configs map[id.ConfigID]OnboardingConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[id.ConfigID]OnboardingConfig)}
}

func (s *MemoryStore) Save(_ context.Context, cfg OnboardingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.RequiredFields = pkgstrings.DedupeAndTrim(cfg.RequiredFields)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[cfg.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "config %s already exists", cfg.ID.String())
	}
	s.configs[cfg.ID] = cfg
	return nil
}

func (s *MemoryStore) Get(_ context.Context, configID id.ConfigID) (OnboardingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[configID]
	if !ok {
		return OnboardingConfig{}, dErrors.Newf(dErrors.CodeNotFound, "config %s not found", configID.String())
	}
	return cfg, nil
}

func (s *MemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]OnboardingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OnboardingConfig
	for _, cfg := range s.configs {
		if cfg.TenantID == tenantID {
			out = append(out, cfg)
		}
	}
	return out, nil
}
