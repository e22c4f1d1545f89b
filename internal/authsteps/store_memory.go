package authsteps

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"idauth/pkg/domain"
	"idauth/pkg/platform/sentinel"
)

// InMemoryStore keeps processes in memory for tests and development.
type InMemoryStore struct {
	mu        sync.RWMutex
	processes map[string]*UserAuthSteps
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{processes: make(map[string]*UserAuthSteps)}
}

// clone deep-copies through JSON so callers never share slices with the store.
func clone(p *UserAuthSteps) *UserAuthSteps {
	raw, _ := json.Marshal(p)
	var out UserAuthSteps
	_ = json.Unmarshal(raw, &out)
	return &out
}

func (s *InMemoryStore) Create(_ context.Context, p *UserAuthSteps) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[p.ProcessID]; ok {
		return fmt.Errorf("process %s: %w", p.ProcessID, sentinel.ErrConflict)
	}
	s.processes[p.ProcessID] = clone(p)
	return nil
}

func (s *InMemoryStore) FindByProcessID(_ context.Context, processID string) (*UserAuthSteps, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processes[processID]
	if !ok {
		return nil, fmt.Errorf("process %s: %w", processID, sentinel.ErrNotFound)
	}
	return clone(p), nil
}

func (s *InMemoryStore) Update(_ context.Context, p *UserAuthSteps) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[p.ProcessID]; !ok {
		return fmt.Errorf("process %s: %w", p.ProcessID, sentinel.ErrNotFound)
	}
	s.processes[p.ProcessID] = clone(p)
	return nil
}

func (s *InMemoryStore) FindAdmitting(_ context.Context, code domain.SchemaCode, userIdentifier, mobileUID string, status domain.StepsStatus) (*UserAuthSteps, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *UserAuthSteps
	for _, p := range s.processes {
		if p.Code != code || p.IsRevoked {
			continue
		}
		if userIdentifier != "" && p.UserIdentifier != userIdentifier {
			continue
		}
		if userIdentifier == "" && p.MobileUID != mobileUID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, fmt.Errorf("admitting process %s: %w", code, sentinel.ErrNotFound)
	}
	return clone(best), nil
}

func (s *InMemoryStore) RevokeMatching(_ context.Context, code domain.SchemaCode, mobileUID, userIdentifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.processes {
		if p.Code != code || p.MobileUID != mobileUID || p.IsRevoked {
			continue
		}
		if userIdentifier != "" && p.UserIdentifier != userIdentifier {
			continue
		}
		p.IsRevoked = true
		n++
	}
	return n, nil
}
