package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"idauth/pkg/domain"
	"idauth/pkg/platform/sentinel"
)

// InMemoryStore keeps tokens in memory for tests and development.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*RefreshToken
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]*RefreshToken)}
}

func clone(t *RefreshToken) *RefreshToken {
	c := *t
	c.AuthEntryPointHistory = append([]EntryPoint{}, t.AuthEntryPointHistory...)
	return &c
}

func (s *InMemoryStore) Insert(_ context.Context, t *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tokens[t.Value]; ok && existing.MobileUID == t.MobileUID {
		return fmt.Errorf("refresh token: %w", sentinel.ErrConflict)
	}
	s.tokens[t.Value] = clone(t)
	return nil
}

func (s *InMemoryStore) ReplaceForDevice(_ context.Context, t *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersede(t)
	s.tokens[t.Value] = clone(t)
	return nil
}

func (s *InMemoryStore) supersede(t *RefreshToken) {
	for _, existing := range s.tokens {
		if existing.MobileUID == t.MobileUID && existing.SessionType == t.SessionType && !existing.IsDeleted {
			existing.IsDeleted = true
		}
	}
}

func (s *InMemoryStore) Find(_ context.Context, value string) (*RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[value]
	if !ok {
		return nil, fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
	}
	return clone(t), nil
}

func (s *InMemoryStore) FindLatestForDevice(_ context.Context, mobileUID string, sessionType domain.SessionType) (*RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *RefreshToken
	for _, t := range s.tokens {
		if t.MobileUID != mobileUID || t.SessionType != sessionType {
			continue
		}
		if best == nil || t.CreatedAt.After(best.CreatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, fmt.Errorf("refresh token for device: %w", sentinel.ErrNotFound)
	}
	return clone(best), nil
}

func live(t *RefreshToken) bool {
	return !t.IsDeleted && !t.Expired && !t.IsCompromised
}

func (s *InMemoryStore) TouchActivity(_ context.Context, value, mobileUID string, a Activity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[value]
	if !ok || t.MobileUID != mobileUID || !live(t) || !t.ExpiresAt.After(a.At) {
		return false, nil
	}
	t.LastActivityDate = a.At
	if a.PlatformType != "" {
		t.PlatformType = a.PlatformType
	}
	if a.PlatformVersion != "" {
		t.PlatformVersion = a.PlatformVersion
	}
	if a.AppVersion != "" {
		t.AppVersion = a.AppVersion
	}
	return true, nil
}

func (s *InMemoryStore) SoftDelete(_ context.Context, value, mobileUID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[value]
	if !ok || t.MobileUID != mobileUID || t.IsDeleted {
		return false, nil
	}
	t.IsDeleted = true
	return true, nil
}

func (s *InMemoryStore) Rotate(_ context.Context, oldValue string, next *RefreshToken) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tokens[oldValue]
	if !ok || old.MobileUID != next.MobileUID || !live(old) {
		return false, nil
	}
	old.IsDeleted = true
	old.Expired = true
	if next.SessionType.IsDeviceBound() {
		s.supersede(next)
	}
	s.tokens[next.Value] = clone(next)
	return true, nil
}

func (s *InMemoryStore) MarkCompromised(_ context.Context, mobileUID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.MobileUID == mobileUID && !t.IsDeleted && !t.Expired && !t.IsCompromised {
			t.IsCompromised = true
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) ExpireBefore(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if !t.Expired && !t.ExpiresAt.After(now) {
			t.Expired = true
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) Purge(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for v, t := range s.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(s.tokens, v)
			n++
		}
	}
	return n, nil
}

// InMemoryOverrides is a fixed override table.
type InMemoryOverrides struct {
	mu        sync.RWMutex
	overrides []Override
}

func NewInMemoryOverrides(overrides ...Override) *InMemoryOverrides {
	return &InMemoryOverrides{overrides: overrides}
}

// Set replaces the table. Callers must invalidate the resolver afterwards.
func (o *InMemoryOverrides) Set(overrides ...Override) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.overrides = overrides
}

func (o *InMemoryOverrides) ListOverrides(_ context.Context, platform domain.PlatformType, sessionType domain.SessionType) ([]Override, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []Override
	for _, ov := range o.overrides {
		if ov.PlatformType == platform && ov.SessionType == sessionType {
			out = append(out, ov)
		}
	}
	return out, nil
}
