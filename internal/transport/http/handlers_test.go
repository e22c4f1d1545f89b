package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idauth/internal/authmethod"
	"idauth/internal/authsteps"
	"idauth/internal/authsteps/strategy"
	"idauth/internal/challenge"
	"idauth/internal/token"
	httptransport "idauth/internal/transport/http"
	"idauth/internal/transport/http/mocks"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/httputil"
	"idauth/pkg/platform/middleware/admin"
	"idauth/pkg/platform/middleware/device"
)

const (
	testMobileUID = "device-1"
	testAdmin     = "operator-secret"
)

type stubValidator struct {
	user *domain.User
}

func (v stubValidator) ValidateUser(string) (*domain.User, string, error) {
	if v.user == nil {
		return nil, "", errors.New("invalid token")
	}
	return v.user, testMobileUID, nil
}

type HandlerSuite struct {
	suite.Suite
	steps       *mocks.MockAuthSteps
	sessions    *mocks.MockSessions
	integrity   *mocks.MockIntegrity
	expirations *mocks.MockExpirationCache
	router      chi.Router
	user        *domain.User
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.steps = mocks.NewMockAuthSteps(ctrl)
	s.sessions = mocks.NewMockSessions(ctrl)
	s.integrity = mocks.NewMockIntegrity(ctrl)
	s.expirations = mocks.NewMockExpirationCache(ctrl)
	s.user = &domain.User{Identifier: "user-hash", SessionType: domain.SessionTypeUser}

	h := httptransport.New(s.steps, s.sessions, s.integrity, s.expirations, stubValidator{user: s.user},
		httptransport.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		httptransport.WithAdminToken(testAdmin),
	)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(device.HeaderMobileUID, testMobileUID)
	req.Header.Set(device.HeaderPlatformType, "android")
	req.Header.Set(device.HeaderAppVersion, "4.2.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *HandlerSuite) decodeError(rr *httptest.ResponseRecorder) httputil.ErrorResponse {
	var resp httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

var bearer = map[string]string{"Authorization": "Bearer access-token"}

func (s *HandlerSuite) TestGetAuthMethods() {
	s.T().Run("anonymous request passes headers and process id", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().
			GetAuthMethods(gomock.Any(), domain.SchemaAuthorization, gomock.Any(), "proc-1", (*domain.User)(nil)).
			DoAndReturn(func(_ context.Context, _ domain.SchemaCode, h domain.Headers, _ string, _ *domain.User) (*authsteps.AuthMethodsResponse, error) {
				assert.Equal(t, testMobileUID, h.MobileUID)
				assert.Equal(t, domain.PlatformAndroid, h.PlatformType)
				return &authsteps.AuthMethodsResponse{ProcessID: "proc-1", Methods: []domain.Method{domain.MethodBankID}}, nil
			})

		rr := s.do(http.MethodGet, "/auth/schemas/authorization/methods?processId=proc-1", nil, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp authsteps.AuthMethodsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, []domain.Method{domain.MethodBankID}, resp.Methods)
	})

	s.T().Run("session user is forwarded", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().
			GetAuthMethods(gomock.Any(), domain.SchemaAuthorization, gomock.Any(), "", s.user).
			Return(&authsteps.AuthMethodsResponse{ProcessID: "proc-2"}, nil)

		rr := s.do(http.MethodGet, "/auth/schemas/authorization/methods", nil, bearer)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	s.T().Run("unknown schema is rejected before the service", func(t *testing.T) {
		s.SetupTest()
		rr := s.do(http.MethodGet, "/auth/schemas/partner-login/methods", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, string(dErrors.CodeValidation), s.decodeError(rr).Error)
	})
}

func (s *HandlerSuite) TestAuthorizationURL() {
	s.SetupTest()
	expires := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	s.steps.EXPECT().
		RequestAuthorizationURL(gomock.Any(), (*domain.User)(nil), gomock.Any(), domain.MethodEmailOtp, "proc-1",
			authmethod.RequestOptions{Email: "applicant@example.com"}).
		Return(&authmethod.AuthorizationURL{RequestID: "req-1", ExpiresAt: expires}, nil)

	rr := s.do(http.MethodPost, "/auth/processes/proc-1/methods/email-otp/url",
		httptransport.AuthorizationURLRequest{Email: " applicant@example.com "}, nil)

	s.Require().Equal(http.StatusOK, rr.Code)
	var resp authmethod.AuthorizationURL
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.Equal("req-1", resp.RequestID)
	s.True(expires.Equal(resp.ExpiresAt))
}

func (s *HandlerSuite) TestVerify() {
	s.T().Run("returns the process code name", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().
			VerifyAuthMethod(gomock.Any(), domain.MethodBankID, "req-1", (*domain.User)(nil), gomock.Any(), "proc-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.Method, _ string, _ *domain.User, h domain.Headers, _ string, p authmethod.VerifyParams) (domain.ProcessCode, error) {
				assert.Equal(t, "auth-code", p.Code)
				assert.Equal(t, h, p.Headers)
				return domain.ProcessCodeAuthSuccess, nil
			})

		rr := s.do(http.MethodPost, "/auth/processes/proc-1/methods/bank-id/verify",
			httptransport.VerifyRequest{RequestID: "req-1", Code: "auth-code"}, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp httptransport.VerifyResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, domain.ProcessCodeAuthSuccess.String(), resp.ProcessCode)
	})

	s.T().Run("domain failure carries its process code", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().
			VerifyAuthMethod(gomock.Any(), domain.MethodBankID, "req-1", gomock.Any(), gomock.Any(), "proc-1", gomock.Any()).
			Return(domain.ProcessCodeNone, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeAttemptsExceeded, "attempts exhausted"))

		rr := s.do(http.MethodPost, "/auth/processes/proc-1/methods/bank-id/verify",
			httptransport.VerifyRequest{RequestID: "req-1"}, nil)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, domain.ProcessCodeAttemptsExceeded.String(), s.decodeError(rr).ProcessCode)
	})

	s.T().Run("unhandled case is an opaque server error", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().
			VerifyAuthMethod(gomock.Any(), domain.MethodQes, "req-1", gomock.Any(), gomock.Any(), "proc-1", gomock.Any()).
			Return(domain.ProcessCodeNone, dErrors.NewProcess(dErrors.CodeUnhandledCase, domain.ProcessCodeAuthSuccess, "no process code mapped"))

		rr := s.do(http.MethodPost, "/auth/processes/proc-1/methods/qes/verify",
			httptransport.VerifyRequest{RequestID: "req-1"}, nil)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := s.decodeError(rr)
		assert.Equal(t, string(dErrors.CodeInternal), resp.Error)
		assert.Empty(t, resp.ProcessCode)
		assert.Empty(t, resp.ErrorDescription)
	})

	s.T().Run("missing request id", func(t *testing.T) {
		s.SetupTest()
		rr := s.do(http.MethodPost, "/auth/processes/proc-1/methods/bank-id/verify", httptransport.VerifyRequest{}, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	s.T().Run("unknown method", func(t *testing.T) {
		s.SetupTest()
		rr := s.do(http.MethodPost, "/auth/processes/proc-1/methods/password/verify",
			httptransport.VerifyRequest{RequestID: "req-1"}, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	s.T().Run("unknown body field", func(t *testing.T) {
		s.SetupTest()
		rr := s.do(http.MethodPost, "/auth/processes/proc-1/methods/bank-id/verify",
			map[string]string{"requestId": "req-1", "pin": "1234"}, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestComplete() {
	completed := &authsteps.UserAuthSteps{
		ProcessID: "proc-1",
		MobileUID: testMobileUID,
		Code:      domain.SchemaAuthorization,
		Status:    domain.StepsStatusCompleted,
	}

	s.T().Run("mints the staged session", func(t *testing.T) {
		s.SetupTest()
		refreshExpiry := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		s.steps.EXPECT().
			CompleteSteps(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req authsteps.CompleteRequest) (*authsteps.UserAuthSteps, error) {
				assert.Equal(t, domain.SchemaAuthorization, req.Code)
				assert.Equal(t, "proc-1", req.ProcessID)
				assert.Equal(t, testMobileUID, req.MobileUID)
				require.NotNil(t, req.Finalize)
				verified := *completed
				verified.Status = domain.StepsStatusSuccess
				err := req.Finalize(ctx, &verified, &strategy.MintingParams{
					Schema:         domain.SchemaAuthorization,
					Method:         domain.MethodBankID,
					SessionType:    domain.SessionTypeUser,
					UserIdentifier: "user-hash",
					FirstName:      "Olena",
					LastName:       "Koval",
				})
				if err != nil {
					return nil, err
				}
				return completed, nil
			})
		s.sessions.EXPECT().
			IssueSession(gomock.Any(), gomock.Any(), "Koval Olena").
			DoAndReturn(func(_ context.Context, p token.IssueParams, _ string) (*token.Session, error) {
				assert.Equal(t, domain.SessionTypeUser, p.SessionType)
				assert.Equal(t, "user-hash", p.UserIdentifier)
				assert.Equal(t, testMobileUID, p.Headers.MobileUID)
				assert.Equal(t, domain.SchemaAuthorization, p.EntryPoint.Schema)
				assert.Equal(t, domain.MethodBankID, p.EntryPoint.Method)
				return &token.Session{
					AccessToken: "access",
					RefreshToken: &token.RefreshToken{
						Value:       "refresh",
						SessionType: domain.SessionTypeUser,
						ExpiresAt:   refreshExpiry,
					},
				}, nil
			})

		rr := s.do(http.MethodPost, "/auth/processes/proc-1/complete",
			httptransport.CompleteRequest{Code: string(domain.SchemaAuthorization)}, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp httptransport.CompleteResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, string(domain.StepsStatusCompleted), resp.Status)
		require.NotNil(t, resp.Session)
		assert.Equal(t, "refresh", resp.Session.RefreshToken)
		assert.Equal(t, refreshExpiry.UnixMilli(), resp.Session.ExpirationTime)
	})

	s.T().Run("schemas without a session only report status", func(t *testing.T) {
		s.SetupTest()
		signing := *completed
		signing.Code = domain.SchemaMilitaryBondsSigning
		s.steps.EXPECT().CompleteSteps(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req authsteps.CompleteRequest) (*authsteps.UserAuthSteps, error) {
				assert.Equal(t, []domain.SchemaCode{domain.SchemaMilitaryBondsSigning}, req.OneOfCodes)
				assert.Equal(t, s.user.Identifier, req.UserIdentifier)
				err := req.Finalize(ctx, &signing, &strategy.MintingParams{Schema: domain.SchemaMilitaryBondsSigning})
				return &signing, err
			})

		rr := s.do(http.MethodPost, "/auth/processes/proc-1/complete",
			httptransport.CompleteRequest{OneOfCodes: []string{string(domain.SchemaMilitaryBondsSigning)}}, bearer)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp httptransport.CompleteResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Nil(t, resp.Session)
	})

	s.T().Run("rejection is not followed by issuance", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().CompleteSteps(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeStepsNotCompleted, "steps not completed"))

		rr := s.do(http.MethodPost, "/auth/processes/proc-1/complete",
			httptransport.CompleteRequest{Code: string(domain.SchemaAuthorization)}, nil)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, domain.ProcessCodeStepsNotCompleted.String(), s.decodeError(rr).ProcessCode)
	})

	s.T().Run("expired staged data is reported without issuance", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().CompleteSteps(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeRequestExpired, "authorization data expired"))

		rr := s.do(http.MethodPost, "/auth/processes/proc-1/complete",
			httptransport.CompleteRequest{Code: string(domain.SchemaAuthorization)}, nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, domain.ProcessCodeRequestExpired.String(), s.decodeError(rr).ProcessCode)
	})

	s.T().Run("failed issuance fails the completion", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().CompleteSteps(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req authsteps.CompleteRequest) (*authsteps.UserAuthSteps, error) {
				verified := *completed
				verified.Status = domain.StepsStatusSuccess
				if err := req.Finalize(ctx, &verified, &strategy.MintingParams{
					Schema: domain.SchemaAuthorization, SessionType: domain.SessionTypeUser, UserIdentifier: "user-hash",
				}); err != nil {
					return nil, err
				}
				return completed, nil
			})
		s.sessions.EXPECT().IssueSession(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "failed to save refresh token"))

		rr := s.do(http.MethodPost, "/auth/processes/proc-1/complete",
			httptransport.CompleteRequest{Code: string(domain.SchemaAuthorization)}, nil)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	s.T().Run("invalid code", func(t *testing.T) {
		s.SetupTest()
		rr := s.do(http.MethodPost, "/auth/processes/proc-1/complete", httptransport.CompleteRequest{Code: "nope"}, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func (s *HandlerSuite) TestRevokeProcesses() {
	s.T().Run("requires a session", func(t *testing.T) {
		s.SetupTest()
		rr := s.do(http.MethodPost, "/auth/schemas/authorization/revoke", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	s.T().Run("revokes for the session user", func(t *testing.T) {
		s.SetupTest()
		s.steps.EXPECT().
			RevokeSubmitAfterUserAuthSteps(gomock.Any(), authsteps.RevokeRequest{
				Code:           domain.SchemaAuthorization,
				MobileUID:      testMobileUID,
				UserIdentifier: s.user.Identifier,
			}).
			Return(&authsteps.RevokeResult{Success: true, RevokedActions: 2}, nil)

		rr := s.do(http.MethodPost, "/auth/schemas/authorization/revoke", nil, bearer)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp authsteps.RevokeResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.RevokedActions)
	})
}

func (s *HandlerSuite) TestTokens() {
	s.T().Run("refresh rotates", func(t *testing.T) {
		s.SetupTest()
		s.sessions.EXPECT().RotateSession(gomock.Any(), "old-refresh", gomock.Any()).
			Return(&token.Session{
				AccessToken:  "access-2",
				RefreshToken: &token.RefreshToken{Value: "new-refresh", SessionType: domain.SessionTypeUser},
			}, nil)

		rr := s.do(http.MethodPost, "/token/refresh", httptransport.RefreshRequest{RefreshToken: "old-refresh"}, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp httptransport.SessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "new-refresh", resp.RefreshToken)
		assert.Equal(t, "access-2", resp.AccessToken)
	})

	s.T().Run("refresh of a revoked token", func(t *testing.T) {
		s.SetupTest()
		s.sessions.EXPECT().RotateSession(gomock.Any(), "old-refresh", gomock.Any()).
			Return(nil, dErrors.NewProcess(dErrors.CodeUnauthorized, domain.ProcessCodeTokenRevoked, "token revoked"))

		rr := s.do(http.MethodPost, "/token/refresh", httptransport.RefreshRequest{RefreshToken: "old-refresh"}, nil)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, domain.ProcessCodeTokenRevoked.String(), s.decodeError(rr).ProcessCode)
	})

	s.T().Run("refresh without a token", func(t *testing.T) {
		s.SetupTest()
		rr := s.do(http.MethodPost, "/token/refresh", httptransport.RefreshRequest{}, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	s.T().Run("logout without a body revokes the latest device session", func(t *testing.T) {
		s.SetupTest()
		s.sessions.EXPECT().Revoke(gomock.Any(), token.RevokeParams{
			MobileUID:      testMobileUID,
			UserIdentifier: s.user.Identifier,
			SessionType:    domain.SessionTypeUser,
		}).Return(nil)

		rr := s.do(http.MethodPost, "/token/logout", nil, bearer)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	s.T().Run("activity heartbeat", func(t *testing.T) {
		s.SetupTest()
		s.sessions.EXPECT().Touch(gomock.Any(), "refresh", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, h domain.Headers) error {
				assert.Equal(t, "4.2.0", h.AppVersion)
				return nil
			})

		rr := s.do(http.MethodPost, "/token/activity", httptransport.RefreshRequest{RefreshToken: "refresh"}, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func (s *HandlerSuite) TestIntegrityChallenge() {
	created := &challenge.Challenge{
		Kind:      challenge.KindAndroidIntegrity,
		MobileUID: testMobileUID,
		Nonce:     "nonce-1",
		Status:    challenge.StatusCreated,
	}

	s.T().Run("create", func(t *testing.T) {
		s.SetupTest()
		s.integrity.EXPECT().Create(gomock.Any(), s.user.Identifier, gomock.Any()).Return(created, nil)

		rr := s.do(http.MethodPost, "/integrity/challenge", nil, bearer)

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp httptransport.ChallengeResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "nonce-1", resp.Nonce)
		assert.Equal(t, string(challenge.StatusCreated), resp.Status)
	})

	s.T().Run("launch", func(t *testing.T) {
		s.SetupTest()
		launched := *created
		launched.Status = challenge.StatusLaunched
		s.integrity.EXPECT().Launch(gomock.Any(), s.user.Identifier, gomock.Any(), "attestation-blob", "nonce-1").Return(&launched, nil)

		rr := s.do(http.MethodPost, "/integrity/challenge/launch",
			httptransport.LaunchRequest{Nonce: "nonce-1", Statement: "attestation-blob"}, bearer)

		assert.Equal(t, http.StatusAccepted, rr.Code)
	})

	s.T().Run("launch of a stale nonce", func(t *testing.T) {
		s.SetupTest()
		s.integrity.EXPECT().Launch(gomock.Any(), s.user.Identifier, gomock.Any(), "attestation-blob", "old").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "challenge not found"))

		rr := s.do(http.MethodPost, "/integrity/challenge/launch",
			httptransport.LaunchRequest{Nonce: "old", Statement: "attestation-blob"}, bearer)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func (s *HandlerSuite) TestInvalidateExpirations() {
	s.T().Run("requires the admin token", func(t *testing.T) {
		s.SetupTest()
		rr := s.do(http.MethodPost, "/admin/token-expiration/invalidate", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	s.T().Run("drops cached overrides", func(t *testing.T) {
		s.SetupTest()
		s.expirations.EXPECT().Invalidate()

		rr := s.do(http.MethodPost, "/admin/token-expiration/invalidate", nil, map[string]string{admin.HeaderAdminToken: testAdmin})
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}
