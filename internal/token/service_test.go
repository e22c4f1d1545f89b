package token_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	jwttoken "idauth/internal/jwt_token"
	"idauth/internal/platform/kvcache"
	"idauth/internal/token"
	"idauth/internal/token/mocks"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/audit"
	auditpublisher "idauth/pkg/platform/audit/publisher"
	"idauth/pkg/platform/audit/store/memory"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	now      time.Time
	ctx      context.Context
	store    *token.InMemoryStore
	revoked  *token.InMemoryRevocationList
	cache    *kvcache.Memory
	events   *memory.InMemoryStore
	jwt      *jwttoken.JWTService
	notifier *mocks.MockNotifier
	service  *token.Service
	headers  domain.Headers
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = token.NewInMemoryStore()
	s.revoked = token.NewInMemoryRevocationList()
	s.cache = kvcache.NewMemory().WithClock(func() time.Time { return s.now })
	s.events = memory.NewInMemoryStore()
	s.jwt = jwttoken.NewJWTService("test-key", "idauth", "mobile")
	s.notifier = mocks.NewMockNotifier(gomock.NewController(s.T()))
	s.service = s.newService(s.store)
	s.headers = domain.Headers{
		MobileUID:       "device-1",
		PlatformType:    domain.PlatformAndroid,
		PlatformVersion: "14",
		AppVersion:      "4.2.0",
	}
}

func (s *ServiceSuite) newService(store token.Store) *token.Service {
	resolver := token.NewExpirationResolver(token.NewInMemoryOverrides(), map[domain.SessionType]time.Duration{
		domain.SessionTypeUser:      30 * 24 * time.Hour,
		domain.SessionTypeEResident: 14 * 24 * time.Hour,
		domain.SessionTypeTemporary: 15 * time.Minute,
	}, 16, time.Minute)
	return token.New(store, s.revoked, resolver, token.Config{
		RotationRevocationTTL:  2 * time.Minute,
		EntryPointHistoryLimit: 10,
		AccessTokenTTL:         15 * time.Minute,
		Retention:              7 * 24 * time.Hour,
	},
		token.WithAuditEmitter(auditpublisher.NewPublisher(s.events)),
		token.WithTemporaryCache(s.cache),
		token.WithNotifier(s.notifier),
		token.WithAccessTokenMinter(s.jwt),
	)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) issue(sessionType domain.SessionType, userIdentifier string) *token.RefreshToken {
	t, err := s.service.Issue(s.ctx, token.IssueParams{
		SessionType:    sessionType,
		Headers:        s.headers,
		UserIdentifier: userIdentifier,
		EntryPoint:     token.EntryPoint{Schema: domain.SchemaAuthorization, Method: domain.MethodBankID},
	})
	s.Require().NoError(err)
	return t
}

func (s *ServiceSuite) requireProcessCode(err error, pc domain.ProcessCode) {
	s.Require().Error(err)
	got, ok := dErrors.ProcessCodeOf(err)
	s.Require().True(ok, "expected process code in %v", err)
	s.Equal(pc, got)
}

func (s *ServiceSuite) TestIssue() {
	s.T().Run("issued token validates for the same device", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")

		res, err := s.service.Validate(s.ctx, issued.Value, s.headers, token.ValidateOptions{UserIdentifier: "user-1"})
		s.Require().NoError(err)
		s.True(res.Valid)
		s.Equal(issued.Value, res.Token.Value)
		s.Equal(s.now.Add(30*24*time.Hour), res.Token.ExpiresAt)
		s.Equal(res.Token.ExpiresAt.UnixMilli(), res.Token.ExpirationTime())
		s.Contains(s.events.Actions(), string(audit.EventTokenIssued))
	})

	s.T().Run("device bound session replaces the previous one and keeps history", func(t *testing.T) {
		s.SetupTest()
		first := s.issue(domain.SessionTypeUser, "user-1")
		second := s.issue(domain.SessionTypeUser, "user-1")

		_, err := s.service.Validate(s.ctx, first.Value, s.headers, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenRevoked)
		s.Len(second.AuthEntryPointHistory, 2)
	})

	s.T().Run("entry point history is capped", func(t *testing.T) {
		s.SetupTest()
		var last *token.RefreshToken
		for i := 0; i < 15; i++ {
			last = s.issue(domain.SessionTypeUser, "user-1")
		}
		s.Len(last.AuthEntryPointHistory, 10)
	})

	s.T().Run("explicit lifetime wins", func(t *testing.T) {
		s.SetupTest()
		issued, err := s.service.Issue(s.ctx, token.IssueParams{
			SessionType: domain.SessionTypeUser,
			Headers:     s.headers,
			Lifetime:    time.Hour,
		})
		s.Require().NoError(err)
		s.Equal(s.now.Add(time.Hour), issued.ExpiresAt)
	})

	s.T().Run("missing device is rejected", func(t *testing.T) {
		s.SetupTest()
		_, err := s.service.Issue(s.ctx, token.IssueParams{SessionType: domain.SessionTypeUser})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.T().Run("session type without lifetime is an internal error", func(t *testing.T) {
		s.SetupTest()
		_, err := s.service.Issue(s.ctx, token.IssueParams{SessionType: domain.SessionTypeCabinetUser, Headers: s.headers})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestValidate() {
	s.T().Run("process code mode reports instead of failing", func(t *testing.T) {
		s.SetupTest()
		res, err := s.service.Validate(s.ctx, "missing", s.headers, token.ValidateOptions{UseProcessCode: true})
		s.Require().NoError(err)
		s.False(res.Valid)
		s.Equal(domain.ProcessCodeTokenNotFound, res.ProcessCode)
	})

	s.T().Run("another device cannot use the token", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")
		other := s.headers
		other.MobileUID = "device-2"
		_, err := s.service.Validate(s.ctx, issued.Value, other, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenDeviceMismatch)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.T().Run("expired by time", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeTemporary, "")
		later := requestcontext.WithTime(context.Background(), s.now.Add(16*time.Minute))
		_, err := s.service.Validate(later, issued.Value, s.headers, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenExpired)
	})

	s.T().Run("user mismatch", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")
		res, err := s.service.Validate(s.ctx, issued.Value, s.headers, token.ValidateOptions{UseProcessCode: true, UserIdentifier: "user-2"})
		s.Require().NoError(err)
		s.Equal(domain.ProcessCodeTokenUserMismatch, res.ProcessCode)
	})

	s.T().Run("compromised device", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")
		s.Require().NoError(s.service.MarkCompromised(s.ctx, "device-1"))

		_, err := s.service.Validate(s.ctx, issued.Value, s.headers, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenCompromised)
		s.Contains(s.events.Actions(), string(audit.EventTokenCompromised))
	})
}

func (s *ServiceSuite) TestRotate() {
	s.T().Run("old value stops validating and the new one carries the session", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")

		next, err := s.service.Rotate(s.ctx, issued.Value, s.headers)
		s.Require().NoError(err)
		s.NotEqual(issued.Value, next.Value)
		s.Equal("user-1", next.UserIdentifier)
		s.Equal(issued.AuthEntryPoint, next.AuthEntryPoint)
		s.Equal(issued.AuthEntryPointHistory, next.AuthEntryPointHistory)

		_, err = s.service.Validate(s.ctx, issued.Value, s.headers, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenRevoked)
		res, err := s.service.Validate(s.ctx, next.Value, s.headers, token.ValidateOptions{})
		s.Require().NoError(err)
		s.True(res.Valid)
	})

	s.T().Run("concurrent rotations of one value have a single winner", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeEResident, "user-1")

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.service.Rotate(s.ctx, issued.Value, s.headers); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		s.Equal(1, successes)
	})
}

func (s *ServiceSuite) TestRevoke() {
	s.T().Run("marks deleted and unassigns the device", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")
		s.notifier.EXPECT().
			UnassignDevice(gomock.Any(), "device-1", "user-1", domain.SessionTypeUser).
			Return(nil)

		err := s.service.Revoke(s.ctx, token.RevokeParams{Value: issued.Value, MobileUID: "device-1"})
		s.Require().NoError(err)
		s.service.Close()

		stored, err := s.store.Find(s.ctx, issued.Value)
		s.Require().NoError(err)
		s.True(stored.IsDeleted)
		s.Contains(s.events.Actions(), string(audit.EventTokenRevoked))
	})

	s.T().Run("second revoke is a no-op", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")
		s.notifier.EXPECT().UnassignDevice(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

		params := token.RevokeParams{Value: issued.Value, MobileUID: "device-1"}
		s.Require().NoError(s.service.Revoke(s.ctx, params))
		s.Require().NoError(s.service.Revoke(s.ctx, params))
		s.service.Close()
	})

	s.T().Run("revokes the latest device session when no value is given", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")
		s.notifier.EXPECT().UnassignDevice(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		err := s.service.Revoke(s.ctx, token.RevokeParams{MobileUID: "device-1", SessionType: domain.SessionTypeUser})
		s.Require().NoError(err)
		s.service.Close()

		_, err = s.service.Validate(s.ctx, issued.Value, s.headers, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenRevoked)
	})

	s.T().Run("foreign device cannot revoke", func(t *testing.T) {
		s.SetupTest()
		issued := s.issue(domain.SessionTypeUser, "user-1")
		err := s.service.Revoke(s.ctx, token.RevokeParams{Value: issued.Value, MobileUID: "device-2"})
		s.requireProcessCode(err, domain.ProcessCodeTokenDeviceMismatch)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.T().Run("unknown token", func(t *testing.T) {
		s.SetupTest()
		err := s.service.Revoke(s.ctx, token.RevokeParams{Value: "nope", MobileUID: "device-1"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestTemporary() {
	s.T().Run("new temporary token retires the previous one", func(t *testing.T) {
		s.SetupTest()
		entry := token.EntryPoint{Schema: domain.SchemaEResidentApplicantAuth, Method: domain.MethodEmailOtp}
		first, err := s.service.IssueTemporary(s.ctx, s.headers, "", entry)
		s.Require().NoError(err)
		second, err := s.service.IssueTemporary(s.ctx, s.headers, "", entry)
		s.Require().NoError(err)

		_, err = s.service.Validate(s.ctx, first.Value, s.headers, token.ValidateOptions{})
		s.requireProcessCode(err, domain.ProcessCodeTokenRevoked)
		_, err = s.service.Validate(s.ctx, second.Value, s.headers, token.ValidateOptions{})
		s.NoError(err)
	})

	s.T().Run("revoke clears the device correlation", func(t *testing.T) {
		s.SetupTest()
		issued, err := s.service.IssueTemporary(s.ctx, s.headers, "", token.EntryPoint{Schema: domain.SchemaEResidentApplicantAuth})
		s.Require().NoError(err)
		s.notifier.EXPECT().UnassignDevice(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		s.Require().NoError(s.service.Revoke(s.ctx, token.RevokeParams{Value: issued.Value, MobileUID: "device-1"}))
		s.service.Close()

		_, err = s.cache.Get(s.ctx, "token:temporary:device-1")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ServiceSuite) TestIssueSession() {
	s.SetupTest()
	now := time.Now().Truncate(time.Second)
	ctx := requestcontext.WithTime(context.Background(), now)
	session, err := s.service.IssueSession(ctx, token.IssueParams{
		SessionType:    domain.SessionTypeUser,
		Headers:        s.headers,
		UserIdentifier: "user-1",
	}, "Olena Petrenko")
	s.Require().NoError(err)
	s.Equal(now.Add(15*time.Minute), session.AccessExpiresAt)

	claims, err := s.jwt.ValidateToken(session.AccessToken)
	s.Require().NoError(err)
	s.Equal("user-1", claims.UserIdentifier)
	s.Equal("device-1", claims.MobileUID)
	s.Equal("Olena Petrenko", claims.FullName)
}

func (s *ServiceSuite) TestRotateSession() {
	s.SetupTest()
	now := time.Now().Truncate(time.Second)
	ctx := requestcontext.WithTime(context.Background(), now)
	issued, err := s.service.Issue(ctx, token.IssueParams{
		SessionType:    domain.SessionTypeUser,
		Headers:        s.headers,
		UserIdentifier: "user-1",
	})
	s.Require().NoError(err)

	session, err := s.service.RotateSession(ctx, issued.Value, s.headers)
	s.Require().NoError(err)
	s.NotEqual(issued.Value, session.RefreshToken.Value)

	claims, err := s.jwt.ValidateToken(session.AccessToken)
	s.Require().NoError(err)
	s.Equal("user-1", claims.UserIdentifier)

	_, err = s.service.RotateSession(ctx, issued.Value, s.headers)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestTouch() {
	s.SetupTest()
	issued := s.issue(domain.SessionTypeUser, "user-1")
	later := s.now.Add(time.Hour)
	headers := s.headers
	headers.AppVersion = "4.3.0"

	s.Require().NoError(s.service.Touch(requestcontext.WithTime(context.Background(), later), issued.Value, headers))

	stored, err := s.store.Find(s.ctx, issued.Value)
	s.Require().NoError(err)
	s.Equal(later, stored.LastActivityDate)
	s.Equal("4.3.0", stored.AppVersion)
}

func (s *ServiceSuite) TestSweep() {
	s.SetupTest()
	temp := s.issue(domain.SessionTypeTemporary, "")
	user := s.issue(domain.SessionTypeUser, "user-1")

	expired, purged, err := s.service.Sweep(requestcontext.WithTime(context.Background(), s.now.Add(time.Hour)))
	s.Require().NoError(err)
	s.Equal(1, expired)
	s.Equal(0, purged)

	stored, err := s.store.Find(s.ctx, temp.Value)
	s.Require().NoError(err)
	s.True(stored.Expired)

	_, purged, err = s.service.Sweep(requestcontext.WithTime(context.Background(), s.now.Add(8*24*time.Hour)))
	s.Require().NoError(err)
	s.Equal(1, purged)
	_, err = s.store.Find(s.ctx, temp.Value)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Find(s.ctx, user.Value)
	s.NoError(err)
}
