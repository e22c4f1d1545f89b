// Package integrity runs device integrity checks on the challenge correlator.
// The check is chosen by the platform the device reports.
package integrity

import (
	"context"
	"fmt"

	"idauth/internal/challenge"
	"idauth/internal/platform/kafka"
	"idauth/pkg/domain"
)

// Check is the payload-independent surface of a challenge.Correlator.
type Check interface {
	Kind() challenge.Kind
	Create(ctx context.Context, userIdentifier string, headers domain.Headers) (*challenge.Challenge, error)
	Launch(ctx context.Context, userIdentifier, mobileUID, statement, nonce string) (*challenge.Challenge, error)
	Get(ctx context.Context, mobileUID string) (*challenge.Challenge, error)
	Handler() kafka.Handler
}

// Binding attaches a check to the platforms it serves and the topic its
// results arrive on.
type Binding struct {
	Check       Check
	Platforms   []domain.PlatformType
	ResultTopic string
}

// Service dispatches to the check registered for a platform, falling back to
// the default check for unlisted platforms.
type Service struct {
	fallback   Check
	byPlatform map[domain.PlatformType]Check
	bindings   []Binding
}

func NewService(fallback Binding, bindings ...Binding) *Service {
	s := &Service{fallback: fallback.Check, byPlatform: make(map[domain.PlatformType]Check)}
	s.bindings = append([]Binding{fallback}, bindings...)
	for _, b := range bindings {
		for _, p := range b.Platforms {
			s.byPlatform[p] = b.Check
		}
	}
	return s
}

func (s *Service) checkFor(platform domain.PlatformType) Check {
	if c, ok := s.byPlatform[platform]; ok {
		return c
	}
	return s.fallback
}

// Create issues a nonce for the device's platform check.
func (s *Service) Create(ctx context.Context, userIdentifier string, headers domain.Headers) (*challenge.Challenge, error) {
	return s.checkFor(headers.PlatformType).Create(ctx, userIdentifier, headers)
}

// Launch submits the client's signed statement for verification.
func (s *Service) Launch(ctx context.Context, userIdentifier string, headers domain.Headers, statement, nonce string) (*challenge.Challenge, error) {
	return s.checkFor(headers.PlatformType).Launch(ctx, userIdentifier, headers.MobileUID, statement, nonce)
}

// Status returns the device's current check.
func (s *Service) Status(ctx context.Context, headers domain.Headers) (*challenge.Challenge, error) {
	return s.checkFor(headers.PlatformType).Get(ctx, headers.MobileUID)
}

// Register routes every check's result topic to its correlator.
func (s *Service) Register(router *kafka.Router) error {
	for _, b := range s.bindings {
		if b.ResultTopic == "" {
			return fmt.Errorf("integrity check %s has no result topic", b.Check.Kind())
		}
		router.Register(b.ResultTopic, b.Check.Handler())
	}
	return nil
}
