package token_test

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"idauth/internal/token"
	"idauth/pkg/domain"
)

// interleavingStore runs before once, right before the first conditional
// write, to simulate another request landing between read and write.
type interleavingStore struct {
	*token.InMemoryStore
	before func()
}

func (s *interleavingStore) fire() {
	if s.before != nil {
		f := s.before
		s.before = nil
		f()
	}
}

func (s *interleavingStore) TouchActivity(ctx context.Context, value, mobileUID string, a token.Activity) (bool, error) {
	s.fire()
	return s.InMemoryStore.TouchActivity(ctx, value, mobileUID, a)
}

func (s *interleavingStore) Rotate(ctx context.Context, oldValue string, next *token.RefreshToken) (bool, error) {
	s.fire()
	return s.InMemoryStore.Rotate(ctx, oldValue, next)
}

func (s *ServiceSuite) TestInterleavedWrites() {
	s.T().Run("heartbeat does not clear a compromise that lands after its read", func(t *testing.T) {
		s.SetupTest()
		store := &interleavingStore{InMemoryStore: s.store}
		svc := s.newService(store)
		issued := s.issue(domain.SessionTypeUser, "user-1")
		store.before = func() {
			s.Require().NoError(svc.MarkCompromised(s.ctx, "device-1"))
		}

		err := svc.Touch(s.ctx, issued.Value, s.headers)
		s.requireProcessCode(err, domain.ProcessCodeTokenCompromised)

		_, err = svc.Validate(s.ctx, issued.Value, s.headers, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenCompromised)
	})

	s.T().Run("heartbeat does not revive a session logged out after its read", func(t *testing.T) {
		s.SetupTest()
		store := &interleavingStore{InMemoryStore: s.store}
		svc := s.newService(store)
		issued := s.issue(domain.SessionTypeUser, "user-1")
		s.notifier.EXPECT().UnassignDevice(gomock.Any(), "device-1", "user-1", domain.SessionTypeUser).Return(nil)
		store.before = func() {
			s.Require().NoError(svc.Revoke(s.ctx, token.RevokeParams{Value: issued.Value, MobileUID: "device-1"}))
		}

		err := svc.Touch(s.ctx, issued.Value, s.headers)
		s.requireProcessCode(err, domain.ProcessCodeTokenRevoked)
		svc.Close()

		_, err = svc.Validate(s.ctx, issued.Value, s.headers, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenRevoked)
	})

	s.T().Run("rotation racing a compromise mints nothing", func(t *testing.T) {
		s.SetupTest()
		store := &interleavingStore{InMemoryStore: s.store}
		svc := s.newService(store)
		issued := s.issue(domain.SessionTypeUser, "user-1")
		store.before = func() {
			s.Require().NoError(svc.MarkCompromised(s.ctx, "device-1"))
		}

		next, err := svc.Rotate(s.ctx, issued.Value, s.headers)
		s.Nil(next)
		s.requireProcessCode(err, domain.ProcessCodeTokenCompromised)

		latest, err := s.store.FindLatestForDevice(s.ctx, "device-1", domain.SessionTypeUser)
		s.Require().NoError(err)
		s.Equal(issued.Value, latest.Value)
		s.True(latest.IsCompromised)
	})

	s.T().Run("heartbeat leaves deletion flags alone", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")
		s.Require().NoError(s.service.Touch(s.ctx, issued.Value, s.headers))

		stored, err := s.store.Find(s.ctx, issued.Value)
		s.Require().NoError(err)
		s.False(stored.IsDeleted)
		s.False(stored.IsCompromised)
	})
}
