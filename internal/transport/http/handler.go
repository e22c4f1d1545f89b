// Package httptransport exposes the authentication actions over HTTP. Handlers
// decode, delegate to the services and encode; rules live in the services.
package httptransport

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"idauth/internal/authmethod"
	"idauth/internal/authschema"
	"idauth/internal/authsteps"
	"idauth/internal/challenge"
	"idauth/internal/platform/metrics"
	"idauth/internal/platform/middleware"
	"idauth/internal/ratelimit"
	"idauth/internal/token"
	"idauth/pkg/domain"
	"idauth/pkg/platform/middleware/admin"
	"idauth/pkg/platform/middleware/auth"
	"idauth/pkg/platform/middleware/device"
	"idauth/pkg/platform/middleware/metadata"
	"idauth/pkg/platform/middleware/requesttime"
	"idauth/pkg/platform/middleware/version"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks AuthSteps,Sessions,Integrity,ExpirationCache

// AuthSteps is the orchestrator surface the handlers drive.
type AuthSteps interface {
	GetAuthMethods(ctx context.Context, code domain.SchemaCode, headers domain.Headers, processID string, user *domain.User) (*authsteps.AuthMethodsResponse, error)
	SetStepMethod(ctx context.Context, user *domain.User, headers domain.Headers, method domain.Method, processID string) (*authschema.Schema, *authsteps.UserAuthSteps, error)
	RequestAuthorizationURL(ctx context.Context, user *domain.User, headers domain.Headers, method domain.Method, processID string, ops authmethod.RequestOptions) (*authmethod.AuthorizationURL, error)
	VerifyAuthMethod(ctx context.Context, method domain.Method, requestID string, user *domain.User, headers domain.Headers, processID string, params authmethod.VerifyParams) (domain.ProcessCode, error)
	CompleteSteps(ctx context.Context, req authsteps.CompleteRequest) (*authsteps.UserAuthSteps, error)
	RevokeSubmitAfterUserAuthSteps(ctx context.Context, req authsteps.RevokeRequest) (*authsteps.RevokeResult, error)
}

// Sessions is the token lifecycle surface.
type Sessions interface {
	IssueSession(ctx context.Context, p token.IssueParams, fullName string) (*token.Session, error)
	RotateSession(ctx context.Context, value string, headers domain.Headers) (*token.Session, error)
	Revoke(ctx context.Context, p token.RevokeParams) error
	Touch(ctx context.Context, value string, headers domain.Headers) error
}

// Integrity runs device integrity challenges.
type Integrity interface {
	Create(ctx context.Context, userIdentifier string, headers domain.Headers) (*challenge.Challenge, error)
	Launch(ctx context.Context, userIdentifier string, headers domain.Headers, statement, nonce string) (*challenge.Challenge, error)
	Status(ctx context.Context, headers domain.Headers) (*challenge.Challenge, error)
}

// ExpirationCache drops cached custom expiration overrides.
type ExpirationCache interface {
	Invalidate()
}

// Handler serves every public and operator endpoint.
type Handler struct {
	steps       AuthSteps
	sessions    Sessions
	integrity   Integrity
	expirations ExpirationCache
	validator   auth.UserValidator
	minimums    version.Minimums
	adminToken  string
	timeout     time.Duration
	limiter     *ratelimit.Limiter
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithMinimums rejects app versions below the per-platform minimum.
func WithMinimums(m version.Minimums) Option {
	return func(h *Handler) {
		h.minimums = m
	}
}

// WithAdminToken enables the operator endpoints.
func WithAdminToken(token string) Option {
	return func(h *Handler) {
		h.adminToken = token
	}
}

// WithRateLimiter throttles the provider-facing and refresh routes per device.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

func New(steps AuthSteps, sessions Sessions, integrity Integrity, expirations ExpirationCache, validator auth.UserValidator, opts ...Option) *Handler {
	h := &Handler{
		steps:       steps,
		sessions:    sessions,
		integrity:   integrity,
		expirations: expirations,
		validator:   validator,
		timeout:     30 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(h.logger, h.metrics))
	router.Use(middleware.Logger(h.logger, h.metrics))
	router.Use(chimw.Timeout(h.timeout))
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(device.Headers)
	router.Use(version.RequireMinimum(h.minimums, h.logger))
	router.Use(middleware.ContentTypeJSON)

	router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(h.validator, h.logger))
		r.Get("/auth/schemas/{code}/methods", h.handleGetAuthMethods)
		r.Post("/auth/processes/{processId}/methods/{method}", h.handleSetStepMethod)
		r.With(h.limiter.PerDevice(ratelimit.ClassAuthURL)).
			Post("/auth/processes/{processId}/methods/{method}/url", h.handleAuthorizationURL)
		r.With(h.limiter.PerDevice(ratelimit.ClassVerify)).
			Post("/auth/processes/{processId}/methods/{method}/verify", h.handleVerify)
		r.Post("/auth/processes/{processId}/complete", h.handleComplete)
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(h.validator, h.logger))
		r.Post("/auth/schemas/{code}/revoke", h.handleRevokeProcesses)
		r.Post("/token/logout", h.handleLogout)
		r.Post("/integrity/challenge", h.handleCreateChallenge)
		r.Get("/integrity/challenge", h.handleChallengeStatus)
		r.Post("/integrity/challenge/launch", h.handleLaunchChallenge)
	})

	router.With(h.limiter.PerDevice(ratelimit.ClassRefresh)).Post("/token/refresh", h.handleRefresh)
	router.Post("/token/activity", h.handleActivity)

	router.With(admin.RequireAdminToken(h.adminToken, h.logger)).
		Post("/admin/token-expiration/invalidate", h.handleInvalidateExpirations)

	r.Mount("/", router)
}
