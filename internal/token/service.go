// Package token manages refresh token sessions: issue, validation, rotation,
// revocation, compromise handling and the scheduled expiry sweep.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	jwttoken "idauth/internal/jwt_token"
	"idauth/internal/platform/kvcache"
	"idauth/internal/token/metrics"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/audit"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/requestcontext"
)

const valueBytes = 32

// AccessTokenMinter mints the short-lived access token issued with a session.
type AccessTokenMinter interface {
	GenerateAccessToken(p jwttoken.AccessTokenParams) (string, time.Time, error)
}

// Config holds lifecycle tunables.
type Config struct {
	RotationRevocationTTL  time.Duration
	EntryPointHistoryLimit int
	AccessTokenTTL         time.Duration
	NotificationTimeout    time.Duration
	// Retention keeps expired tokens this long before the sweep purges them.
	// Zero disables purging.
	Retention time.Duration
}

// Service is the refresh token lifecycle manager.
type Service struct {
	store       Store
	revocations RevocationList
	resolver    *ExpirationResolver
	cfg         Config

	temporary kvcache.Cache
	notifier  Notifier
	minter    AccessTokenMinter
	events    audit.Emitter
	metrics   *metrics.Metrics
	logger    *slog.Logger

	notifications sync.WaitGroup
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditEmitter(events audit.Emitter) Option {
	return func(s *Service) {
		s.events = events
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithTemporaryCache sets where the device's current temporary token is tracked.
func WithTemporaryCache(c kvcache.Cache) Option {
	return func(s *Service) {
		s.temporary = c
	}
}

func WithAccessTokenMinter(m AccessTokenMinter) Option {
	return func(s *Service) {
		s.minter = m
	}
}

func New(store Store, revocations RevocationList, resolver *ExpirationResolver, cfg Config, opts ...Option) *Service {
	if cfg.EntryPointHistoryLimit <= 0 {
		cfg.EntryPointHistoryLimit = 10
	}
	if cfg.RotationRevocationTTL <= 0 {
		cfg.RotationRevocationTTL = 2 * time.Minute
	}
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = 5 * time.Second
	}
	s := &Service{
		store:       store,
		revocations: revocations,
		resolver:    resolver,
		cfg:         cfg,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue mints a refresh token. Device-bound session types replace the
// device's previous token of the same type and carry its entry point history.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*RefreshToken, error) {
	if err := p.Headers.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid headers")
	}
	if p.SessionType == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "session type is required")
	}
	now := requestcontext.Now(ctx)
	if p.EntryPoint.At.IsZero() {
		p.EntryPoint.At = now
	}

	var history []EntryPoint
	if p.SessionType.IsDeviceBound() {
		prev, err := s.store.FindLatestForDevice(ctx, p.Headers.MobileUID, p.SessionType)
		switch {
		case err == nil:
			history = prev.AuthEntryPointHistory
		case !errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load previous session")
		}
	}
	history = appendEntryPoint(history, p.EntryPoint, s.cfg.EntryPointHistoryLimit)

	t, err := s.mint(ctx, p, p.EntryPoint, history)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.EventTokenIssued, t, "")
	s.logger.InfoContext(ctx, "refresh token issued",
		"mobile_uid", t.MobileUID,
		"session_type", t.SessionType,
		"schema", t.AuthEntryPoint.Schema,
		"expires_at", t.ExpiresAt,
	)
	return t, nil
}

func (s *Service) mint(ctx context.Context, p IssueParams, entry EntryPoint, history []EntryPoint) (*RefreshToken, error) {
	t, err := s.build(ctx, p, entry, history)
	if err != nil {
		return nil, err
	}
	if p.SessionType.IsDeviceBound() {
		err = s.store.ReplaceForDevice(ctx, t)
	} else {
		err = s.store.Insert(ctx, t)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save refresh token")
	}
	s.metrics.IncIssued(string(t.SessionType))
	return t, nil
}

func (s *Service) build(ctx context.Context, p IssueParams, entry EntryPoint, history []EntryPoint) (*RefreshToken, error) {
	lifetime := p.Lifetime
	if lifetime <= 0 {
		lifetime = s.resolver.Resolve(ctx, p.SessionType, p.Headers)
	}
	if lifetime <= 0 {
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no lifetime configured for %s sessions", p.SessionType))
	}
	value, err := newValue()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate refresh token")
	}

	now := requestcontext.Now(ctx)
	return &RefreshToken{
		Value:                 value,
		MobileUID:             p.Headers.MobileUID,
		SessionType:           p.SessionType,
		UserIdentifier:        p.UserIdentifier,
		AuthEntryPoint:        entry,
		AuthEntryPointHistory: history,
		ExpiresAt:             now.Add(lifetime),
		PlatformType:          p.Headers.PlatformType,
		PlatformVersion:       p.Headers.PlatformVersion,
		AppVersion:            p.Headers.AppVersion,
		LastActivityDate:      now,
		CreatedAt:             now,
	}, nil
}

// Validate checks value against the presenting device. In process code mode
// a rejected token yields a result with Valid false instead of an error.
func (s *Service) Validate(ctx context.Context, value string, headers domain.Headers, opts ValidateOptions) (*ValidationResult, error) {
	reject := func(t *RefreshToken, pc domain.ProcessCode, msg string) (*ValidationResult, error) {
		s.metrics.IncRejected(pc.String())
		if opts.UseProcessCode {
			return &ValidationResult{Valid: false, ProcessCode: pc, Token: t}, nil
		}
		return nil, dErrors.NewProcess(dErrors.CodeUnauthorized, pc, msg)
	}

	revoked, err := s.revocations.IsRevoked(ctx, value)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rotated tokens")
	}
	if revoked {
		return reject(nil, domain.ProcessCodeTokenRevoked, "refresh token was rotated")
	}

	t, err := s.store.Find(ctx, value)
	if errors.Is(err, sentinel.ErrNotFound) {
		return reject(nil, domain.ProcessCodeTokenNotFound, "refresh token not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load refresh token")
	}

	now := requestcontext.Now(ctx)
	switch {
	case t.MobileUID != headers.MobileUID:
		return reject(nil, domain.ProcessCodeTokenDeviceMismatch, "refresh token belongs to another device")
	case t.IsDeleted:
		return reject(t, domain.ProcessCodeTokenRevoked, "refresh token revoked")
	case t.Expired || !now.Before(t.ExpiresAt):
		return reject(t, domain.ProcessCodeTokenExpired, "refresh token has expired")
	case t.IsCompromised:
		return reject(t, domain.ProcessCodeTokenCompromised, "refresh token compromised")
	case opts.UserIdentifier != "" && t.UserIdentifier != opts.UserIdentifier:
		return reject(t, domain.ProcessCodeTokenUserMismatch, "refresh token belongs to another user")
	}
	return &ValidationResult{Valid: true, Token: t}, nil
}

// Rotate exchanges a valid refresh token for a new one. The old value enters
// the revocation list first; a concurrent second rotation of the same value
// is rejected as revoked.
func (s *Service) Rotate(ctx context.Context, value string, headers domain.Headers) (*RefreshToken, error) {
	res, err := s.Validate(ctx, value, headers, ValidateOptions{})
	if err != nil {
		return nil, err
	}
	old := res.Token

	added, err := s.revocations.Add(ctx, old.Value, s.cfg.RotationRevocationTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke rotated token")
	}
	if !added {
		s.metrics.IncRejected(domain.ProcessCodeTokenRevoked.String())
		return nil, dErrors.NewProcess(dErrors.CodeUnauthorized, domain.ProcessCodeTokenRevoked, "refresh token already rotated")
	}

	next, err := s.build(ctx, IssueParams{
		SessionType:    old.SessionType,
		Headers:        headers,
		UserIdentifier: old.UserIdentifier,
	}, old.AuthEntryPoint, old.AuthEntryPointHistory)
	if err != nil {
		return nil, err
	}
	rotated, err := s.store.Rotate(ctx, old.Value, next)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate refresh token")
	}
	if !rotated {
		return nil, s.inactive(ctx, old.Value)
	}
	s.metrics.IncIssued(string(next.SessionType))
	s.metrics.IncRotated()
	s.emit(ctx, audit.EventTokenRotated, next, "")
	return next, nil
}

// Revoke ends a session. An empty value revokes the device's latest token of
// the given session type. Revoking an already deleted token is a no-op.
func (s *Service) Revoke(ctx context.Context, p RevokeParams) error {
	var (
		t   *RefreshToken
		err error
	)
	if p.Value != "" {
		t, err = s.store.Find(ctx, p.Value)
	} else {
		t, err = s.store.FindLatestForDevice(ctx, p.MobileUID, p.SessionType)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeTokenNotFound, "refresh token not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load refresh token")
	}
	if t.MobileUID != p.MobileUID {
		return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeTokenDeviceMismatch, "refresh token belongs to another device")
	}
	if p.UserIdentifier != "" && t.UserIdentifier != p.UserIdentifier {
		return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeTokenUserMismatch, "refresh token belongs to another user")
	}
	deleted, err := s.store.SoftDelete(ctx, t.Value, t.MobileUID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke refresh token")
	}
	if !deleted {
		return nil
	}
	if s.temporary != nil {
		if err := s.temporary.Delete(ctx, temporaryKey(t.MobileUID)); err != nil {
			s.logger.WarnContext(ctx, "failed to clear temporary token", "mobile_uid", t.MobileUID, "error", err)
		}
	}
	s.metrics.IncRevoked(string(t.SessionType))
	s.emit(ctx, audit.EventTokenRevoked, t, "")
	s.unassignAsync(ctx, t)
	s.logger.InfoContext(ctx, "refresh token revoked",
		"mobile_uid", t.MobileUID,
		"session_type", t.SessionType,
	)
	return nil
}

// unassignAsync notifies outside the request lifetime; failures are logged.
func (s *Service) unassignAsync(ctx context.Context, t *RefreshToken) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		ctx, cancel := context.WithTimeout(ctx, s.cfg.NotificationTimeout)
		defer cancel()
		if err := s.notifier.UnassignDevice(ctx, t.MobileUID, t.UserIdentifier, t.SessionType); err != nil {
			s.logger.ErrorContext(ctx, "failed to unassign device from notifications",
				"mobile_uid", t.MobileUID,
				"error", err,
			)
		}
	}()
}

// Close waits for in-flight notifications.
func (s *Service) Close() {
	s.notifications.Wait()
}

// MarkCompromised flags every live session of the device.
func (s *Service) MarkCompromised(ctx context.Context, mobileUID string) error {
	n, err := s.store.MarkCompromised(ctx, mobileUID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark sessions compromised")
	}
	s.metrics.AddCompromised(n)
	if n > 0 {
		s.emit(ctx, audit.EventTokenCompromised, &RefreshToken{MobileUID: mobileUID}, "device check failed")
	}
	s.logger.WarnContext(ctx, "sessions marked compromised", "mobile_uid", mobileUID, "count", n)
	return nil
}

// Touch records client activity on a valid session. Only the activity
// columns are written, and only while the token is still live.
func (s *Service) Touch(ctx context.Context, value string, headers domain.Headers) error {
	res, err := s.Validate(ctx, value, headers, ValidateOptions{})
	if err != nil {
		return err
	}
	touched, err := s.store.TouchActivity(ctx, res.Token.Value, res.Token.MobileUID, Activity{
		At:              requestcontext.Now(ctx),
		PlatformType:    headers.PlatformType,
		PlatformVersion: headers.PlatformVersion,
		AppVersion:      headers.AppVersion,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record activity")
	}
	if !touched {
		return s.inactive(ctx, value)
	}
	return nil
}

// inactive explains why a token that passed validation could not be used.
func (s *Service) inactive(ctx context.Context, value string) error {
	pc := domain.ProcessCodeTokenRevoked
	if t, err := s.store.Find(ctx, value); err == nil {
		switch {
		case t.IsCompromised:
			pc = domain.ProcessCodeTokenCompromised
		case t.Expired && !t.IsDeleted:
			pc = domain.ProcessCodeTokenExpired
		}
	}
	s.metrics.IncRejected(pc.String())
	return dErrors.NewProcess(dErrors.CodeUnauthorized, pc, "refresh token is no longer active")
}

type temporaryRef struct {
	Value string `json:"value"`
}

func temporaryKey(mobileUID string) string {
	return "token:temporary:" + mobileUID
}

// IssueTemporary mints a short-lived token for a device that has not finished
// authenticating. The device's previous temporary token is revoked.
func (s *Service) IssueTemporary(ctx context.Context, headers domain.Headers, userIdentifier string, entry EntryPoint) (*RefreshToken, error) {
	if s.temporary != nil {
		prev, err := kvcache.GetJSON[temporaryRef](ctx, s.temporary, temporaryKey(headers.MobileUID))
		switch {
		case err == nil:
			s.retire(ctx, prev.Value)
		case !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "failed to load temporary token", "mobile_uid", headers.MobileUID, "error", err)
		}
	}

	t, err := s.Issue(ctx, IssueParams{
		SessionType:    domain.SessionTypeTemporary,
		Headers:        headers,
		UserIdentifier: userIdentifier,
		EntryPoint:     entry,
	})
	if err != nil {
		return nil, err
	}
	if s.temporary != nil {
		ttl := t.ExpiresAt.Sub(t.CreatedAt)
		if err := kvcache.SetJSON(ctx, s.temporary, temporaryKey(t.MobileUID), temporaryRef{Value: t.Value}, ttl); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to track temporary token")
		}
	}
	return t, nil
}

func (s *Service) retire(ctx context.Context, value string) {
	t, err := s.store.Find(ctx, value)
	if err != nil {
		return
	}
	if _, err := s.store.SoftDelete(ctx, t.Value, t.MobileUID); err != nil {
		s.logger.WarnContext(ctx, "failed to retire temporary token", "mobile_uid", t.MobileUID, "error", err)
	}
}

// IssueSession issues a refresh token together with an access token.
func (s *Service) IssueSession(ctx context.Context, p IssueParams, fullName string) (*Session, error) {
	if s.minter == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "access tokens are not configured")
	}
	t, err := s.Issue(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.withAccessToken(ctx, t, fullName)
}

// RotateSession rotates the refresh token and mints a fresh access token for it.
func (s *Service) RotateSession(ctx context.Context, value string, headers domain.Headers) (*Session, error) {
	if s.minter == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "access tokens are not configured")
	}
	t, err := s.Rotate(ctx, value, headers)
	if err != nil {
		return nil, err
	}
	return s.withAccessToken(ctx, t, "")
}

func (s *Service) withAccessToken(ctx context.Context, t *RefreshToken, fullName string) (*Session, error) {
	access, expiresAt, err := s.minter.GenerateAccessToken(jwttoken.AccessTokenParams{
		UserIdentifier: t.UserIdentifier,
		MobileUID:      t.MobileUID,
		SessionType:    t.SessionType,
		FullName:       fullName,
		IssuedAt:       requestcontext.Now(ctx),
		ExpiresIn:      s.cfg.AccessTokenTTL,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint access token")
	}
	return &Session{RefreshToken: t, AccessToken: access, AccessExpiresAt: expiresAt}, nil
}

// Sweep flags tokens past their expiry and purges those beyond retention.
func (s *Service) Sweep(ctx context.Context) (expired, purged int, err error) {
	now := requestcontext.Now(ctx)
	expired, err = s.store.ExpireBefore(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	s.metrics.AddExpired(expired)
	if s.cfg.Retention > 0 {
		purged, err = s.store.Purge(ctx, now.Add(-s.cfg.Retention))
		if err != nil {
			return expired, 0, err
		}
		s.metrics.AddPurged(purged)
	}
	return expired, purged, nil
}

// RunSweep sweeps on every tick until ctx is done.
func (s *Service) RunSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			expired, purged, err := s.Sweep(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "refresh token sweep failed", "error", err)
				continue
			}
			if expired > 0 || purged > 0 {
				s.logger.InfoContext(ctx, "refresh token sweep", "expired", expired, "purged", purged)
			}
		}
	}
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, t *RefreshToken, reason string) {
	if s.events == nil {
		return
	}
	subject := t.UserIdentifier
	if subject == "" {
		subject = t.MobileUID
	}
	event := audit.Event{
		Subject:     subject,
		MobileUID:   t.MobileUID,
		Action:      string(action),
		SchemaCode:  string(t.AuthEntryPoint.Schema),
		Method:      string(t.AuthEntryPoint.Method),
		SessionType: string(t.SessionType),
		Platform:    string(t.PlatformType),
		Reason:      reason,
	}
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "token audit event not recorded", "action", action, "error", err)
	}
}

func newValue() (string, error) {
	b := make([]byte, valueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
