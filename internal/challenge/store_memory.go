package challenge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"idauth/pkg/platform/sentinel"
)

type deviceKey struct {
	kind      Kind
	mobileUID string
}

// InMemoryStore keeps challenges in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	byDevice map[deviceKey]*Challenge
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byDevice: make(map[deviceKey]*Challenge)}
}

func (s *InMemoryStore) Replace(_ context.Context, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, existing := range s.byDevice {
		if existing.Nonce == ch.Nonce && k != (deviceKey{ch.Kind, ch.MobileUID}) {
			return fmt.Errorf("nonce %s: %w", ch.Nonce, sentinel.ErrConflict)
		}
	}
	c := *ch
	s.byDevice[deviceKey{ch.Kind, ch.MobileUID}] = &c
	return nil
}

func (s *InMemoryStore) FindByNonce(_ context.Context, kind Kind, nonce string) (*Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, ch := range s.byDevice {
		if k.kind == kind && ch.Nonce == nonce {
			c := *ch
			return &c, nil
		}
	}
	return nil, fmt.Errorf("challenge with nonce: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByDevice(_ context.Context, kind Kind, mobileUID string) (*Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.byDevice[deviceKey{kind, mobileUID}]
	if !ok {
		return nil, fmt.Errorf("challenge for device: %w", sentinel.ErrNotFound)
	}
	c := *ch
	return &c, nil
}

func (s *InMemoryStore) Update(_ context.Context, ch *Challenge, from Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := deviceKey{ch.Kind, ch.MobileUID}
	existing, ok := s.byDevice[key]
	if !ok || existing.Nonce != ch.Nonce || existing.Status != from {
		return fmt.Errorf("challenge with nonce: %w", sentinel.ErrNotFound)
	}
	c := *ch
	s.byDevice[key] = &c
	return nil
}

func (s *InMemoryStore) ListStale(_ context.Context, status Status, before time.Time, limit int) ([]*Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Challenge
	for _, ch := range s.byDevice {
		if ch.Status == status && ch.UpdatedAt.Before(before) {
			c := *ch
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
