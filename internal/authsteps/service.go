// Package authsteps runs the step and attempt state machine of an
// authentication process against the declarative schema catalog.
package authsteps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idauth/internal/authmethod"
	"idauth/internal/authschema"
	"idauth/internal/authsteps/metrics"
	"idauth/internal/authsteps/strategy"
	"idauth/internal/platform/lock"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/audit"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/requestcontext"
)

const lockPrefix = "user-auth-steps-"

// Config holds orchestrator tunables.
type Config struct {
	ReplayPolicy    ReplayPolicy
	ProviderTimeout time.Duration
	StrategyTimeout time.Duration
}

// Service is the authentication orchestrator.
type Service struct {
	catalog    *authschema.Catalog
	store      Store
	providers  *authmethod.Registry
	strategies *strategy.Table
	params     *strategy.ParamsCache
	locker     lock.Locker
	cfg        Config

	events  audit.Emitter
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
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

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func New(
	catalog *authschema.Catalog,
	store Store,
	providers *authmethod.Registry,
	strategies *strategy.Table,
	params *strategy.ParamsCache,
	locker lock.Locker,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.ReplayPolicy == "" {
		cfg.ReplayPolicy = ReplayReject
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 15 * time.Second
	}
	if cfg.StrategyTimeout <= 0 {
		cfg.StrategyTimeout = 10 * time.Second
	}
	s := &Service{
		catalog:    catalog,
		store:      store,
		providers:  providers,
		strategies: strategies,
		params:     params,
		locker:     locker,
		cfg:        cfg,
		tracer:     otel.Tracer("idauth/authsteps"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withDevice serializes read-modify-write sequences for one device.
func (s *Service) withDevice(ctx context.Context, mobileUID string, fn func(ctx context.Context) error) error {
	err := s.locker.WithLock(ctx, lockPrefix+mobileUID, fn)
	if errors.Is(err, lock.ErrNotAcquired) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "another request for this device is in progress")
	}
	return err
}

// GetAuthMethods lists the methods the device may use next. Without a
// processID it checks admission and starts a new process.
func (s *Service) GetAuthMethods(ctx context.Context, code domain.SchemaCode, headers domain.Headers, processID string, user *domain.User) (*AuthMethodsResponse, error) {
	if err := headers.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid headers")
	}
	schema, err := s.schema(ctx, code)
	if err != nil {
		return nil, err
	}

	var resp *AuthMethodsResponse
	err = s.withDevice(ctx, headers.MobileUID, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		if processID == "" {
			admittedAfter, err := s.admit(ctx, schema, headers, user)
			if err != nil {
				return err
			}
			p := &UserAuthSteps{
				ProcessID:            uuid.NewString(),
				MobileUID:            headers.MobileUID,
				Code:                 code,
				AdmittedAfterProcess: admittedAfter,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
			p.setStatus(domain.StepsStatusProcessing, "", now)
			if err := s.store.Create(ctx, p); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to start auth process")
			}
			resp = &AuthMethodsResponse{ProcessID: p.ProcessID, Methods: allowedMethods(schema, p)}
			return nil
		}

		p, err := s.load(ctx, processID, headers.MobileUID)
		if err != nil {
			return err
		}
		if p.Code != code {
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeSchemaNotAdmitted, "process belongs to another schema")
		}
		if s.expireOpenStep(schema, p, now) {
			if err := s.save(ctx, p, now); err != nil {
				return err
			}
		}
		resp = &AuthMethodsResponse{ProcessID: p.ProcessID}
		switch p.Status {
		case domain.StepsStatusFailure:
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeAttemptsExceeded, "auth process failed")
		case domain.StepsStatusSuccess, domain.StepsStatusCompleted:
			resp.SkipAuthMethods = true
			resp.Methods = []domain.Method{}
			return nil
		}
		if open := p.OpenStep(); open != nil {
			resp.Methods = []domain.Method{open.Method}
			return nil
		}
		resp.Methods = allowedMethods(schema, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// admit walks admitAfter: every ancestor schema needs a prior process for the
// same identity. It returns the first ancestor process id.
func (s *Service) admit(ctx context.Context, schema *authschema.Schema, headers domain.Headers, user *domain.User) (string, error) {
	var userIdentifier string
	if user != nil {
		userIdentifier = user.Identifier
	}
	var first string
	for _, dep := range schema.AdmitAfter {
		prior, err := s.store.FindAdmitting(ctx, dep.Code, userIdentifier, headers.MobileUID, dep.Status)
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeSchemaNotAdmitted,
				fmt.Sprintf("%s requires a prior %s", schema.Code, dep.Code))
		}
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check admission")
		}
		if first == "" {
			first = prior.ProcessID
		}
	}
	return first, nil
}

// SetStepMethod opens a step for method. Re-requesting the open method counts
// against its verify attempt budget; choosing another method cancels the open step.
func (s *Service) SetStepMethod(ctx context.Context, user *domain.User, headers domain.Headers, method domain.Method, processID string) (*authschema.Schema, *UserAuthSteps, error) {
	if err := headers.Validate(); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid headers")
	}

	var (
		schema *authschema.Schema
		p      *UserAuthSteps
	)
	err := s.withDevice(ctx, headers.MobileUID, func(ctx context.Context) error {
		var err error
		p, err = s.load(ctx, processID, headers.MobileUID)
		if err != nil {
			return err
		}
		schema, err = s.schema(ctx, p.Code)
		if err != nil {
			return err
		}
		switch p.Status {
		case domain.StepsStatusFailure:
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeAttemptsExceeded, "auth process failed")
		case domain.StepsStatusSuccess, domain.StepsStatusCompleted:
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeStepsAlreadyCompleted, "auth process already verified")
		}

		now := requestcontext.Now(ctx)
		if s.expireOpenStep(schema, p, now) {
			if err := s.save(ctx, p, now); err != nil {
				return err
			}
		}
		if !containsMethod(allowedMethods(schema, p), method) {
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeMethodNotAllowed,
				fmt.Sprintf("method %s is not allowed at this step", method))
		}
		cfg, _, ok := stepConfig(schema, p, method)
		if !ok {
			return s.unhandled(ctx, p, method)
		}

		open := p.OpenStep()
		if open != nil && open.Method == method {
			open.VerifyAttempts++
			if open.VerifyAttempts > cfg.MaxVerifyAttempts {
				open.close(StepResultFailure, now)
				p.setStatus(domain.StepsStatusFailure, method, now)
				if err := s.save(ctx, p, now); err != nil {
					return err
				}
				s.metrics.IncAttemptsExceeded(string(p.Code), string(method))
				s.emit(ctx, audit.EventAttemptsExceeded, p, method, domain.ProcessCodeVerifyAttemptsExceeded, "")
				return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeVerifyAttemptsExceeded, "too many authorization requests")
			}
		} else {
			if open != nil {
				open.close(StepResultCancelled, now)
			}
			p.Steps = append(p.Steps, Step{Method: method, StartDate: now})
		}
		if err := s.save(ctx, p, now); err != nil {
			return err
		}
		s.emit(ctx, audit.EventStepMethodSet, p, method, domain.ProcessCodeNone, "")
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "auth step opened",
		"process_id", p.ProcessID,
		"mobile_uid", p.MobileUID,
		"schema", p.Code,
		"method", method,
	)
	return schema, p, nil
}

// RequestAuthorizationURL opens the step and asks the method's provider to
// start its flow. The provider call runs outside the device lock.
func (s *Service) RequestAuthorizationURL(ctx context.Context, user *domain.User, headers domain.Headers, method domain.Method, processID string, ops authmethod.RequestOptions) (*authmethod.AuthorizationURL, error) {
	schema, _, err := s.SetStepMethod(ctx, user, headers, method, processID)
	if err != nil {
		return nil, err
	}
	provider, err := s.providers.Get(method)
	if err != nil {
		s.logger.ErrorContext(ctx, "no provider for catalog method", "schema", schema.Code, "method", method, "error", err)
		return nil, err
	}
	ops.ProcessID = processID

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "authmethod.request_authorization_url", trace.WithAttributes(
		attribute.String("auth.method", string(method)),
		attribute.String("auth.schema", string(schema.Code)),
	))
	defer span.End()

	url, err := provider.RequestAuthorizationURL(ctx, ops, headers, schema.Code)
	if err != nil {
		recordSpanError(span, err)
		return nil, timeoutAware(err, "authorization request timed out")
	}
	return url, nil
}

// VerifyAuthMethod verifies the open step and returns the resulting process
// code. Failures carry their process code on the error.
func (s *Service) VerifyAuthMethod(ctx context.Context, method domain.Method, requestID string, user *domain.User, headers domain.Headers, processID string, params authmethod.VerifyParams) (domain.ProcessCode, error) {
	if err := headers.Validate(); err != nil {
		return domain.ProcessCodeNone, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid headers")
	}

	var (
		result domain.ProcessCode
		code   domain.SchemaCode
	)
	err := s.withDevice(ctx, headers.MobileUID, func(ctx context.Context) error {
		p, err := s.load(ctx, processID, headers.MobileUID)
		if err != nil {
			return err
		}
		code = p.Code
		schema, err := s.schema(ctx, p.Code)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		if s.expireOpenStep(schema, p, now) {
			if err := s.save(ctx, p, now); err != nil {
				return err
			}
		}
		open := p.OpenStep()
		if open == nil {
			return dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeNoOpenStep, "no open step")
		}
		if open.Method != method {
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeMethodNotAllowed,
				fmt.Sprintf("open step is %s, not %s", open.Method, method))
		}
		cfg, sub, ok := stepConfig(schema, p, method)
		if !ok {
			return s.unhandled(ctx, p, method)
		}

		open.Attempts++
		if open.Attempts > cfg.MaxAttempts {
			return s.exhaust(ctx, p, open, nil)
		}

		params.Headers = headers
		payload, err := s.verifyWithProvider(ctx, method, requestID, params)
		if err != nil {
			return s.failAttempt(ctx, p, open, cfg, err)
		}

		strat, err := s.strategies.Get(p.Code)
		if err != nil {
			return s.unhandled(ctx, p, method)
		}
		res, err := s.verifyWithStrategy(ctx, strat, strategy.Input{
			Schema:          p.Code,
			SessionType:     schema.SessionType,
			ProcessID:       p.ProcessID,
			Method:          method,
			SubMethod:       sub,
			KnownIdentifier: p.UserIdentifier,
			User:            user,
			Payload:         payload,
		})
		if err != nil {
			return s.failAttempt(ctx, p, open, cfg, err)
		}

		open.close(StepResultSuccess, now)
		if p.UserIdentifier == "" {
			p.UserIdentifier = res.UserIdentifier
		}
		p.addConditions(res.Conditions)

		status := domain.StepsStatusSuccess
		if !sub && len(schema.QualifyingSubMethods(method, p.Conditions)) > 0 {
			status = domain.StepsStatusProcessing
		}
		pc, ok := schema.ProcessCodeFor(status, method)
		if !ok {
			return s.unhandled(ctx, p, method)
		}
		p.setStatus(status, method, now)
		if err := s.save(ctx, p, now); err != nil {
			return err
		}
		s.emit(ctx, audit.EventMethodVerified, p, method, pc, "")
		result = pc
		return nil
	})
	if err != nil {
		pc, _ := dErrors.ProcessCodeOf(err)
		outcome := "error"
		if pc != domain.ProcessCodeNone {
			outcome = pc.String()
		}
		s.metrics.IncVerification(string(code), string(method), outcome)
		return domain.ProcessCodeNone, err
	}

	s.metrics.IncVerification(string(code), string(method), result.String())
	s.logger.InfoContext(ctx, "auth method verified",
		"process_id", processID,
		"mobile_uid", headers.MobileUID,
		"schema", code,
		"method", method,
		"process_code", result,
	)
	return result, nil
}

func (s *Service) verifyWithProvider(ctx context.Context, method domain.Method, requestID string, params authmethod.VerifyParams) (*authmethod.IdentityPayload, error) {
	provider, err := s.providers.Get(method)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "authmethod.verify", trace.WithAttributes(
		attribute.String("auth.method", string(method)),
	))
	defer span.End()

	start := time.Now()
	payload, err := provider.Verify(ctx, requestID, params)
	s.metrics.ObserveProvider(string(method), time.Since(start))
	if err != nil {
		recordSpanError(span, err)
		return nil, timeoutAware(err, "provider verification timed out")
	}
	return payload, nil
}

func (s *Service) verifyWithStrategy(ctx context.Context, strat strategy.Strategy, in strategy.Input) (*strategy.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StrategyTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "authsteps.strategy", trace.WithAttributes(
		attribute.String("auth.schema", string(in.Schema)),
		attribute.String("auth.method", string(in.Method)),
	))
	defer span.End()

	res, err := strat.Verify(ctx, in)
	if err != nil {
		recordSpanError(span, err)
		return nil, timeoutAware(err, "identity verification timed out")
	}
	return res, nil
}

// failAttempt persists the consumed attempt. The last allowed attempt closes
// the step and fails the process.
func (s *Service) failAttempt(ctx context.Context, p *UserAuthSteps, step *Step, cfg authschema.MethodConfig, cause error) error {
	if dErrors.HasCode(cause, dErrors.CodeUnhandledCase) {
		return s.unhandled(ctx, p, step.Method)
	}
	if step.Attempts >= cfg.MaxAttempts {
		return s.exhaust(ctx, p, step, cause)
	}
	now := requestcontext.Now(ctx)
	if err := s.save(ctx, p, now); err != nil {
		return err
	}
	pc, _ := dErrors.ProcessCodeOf(cause)
	s.emit(ctx, audit.EventMethodFailed, p, step.Method, pc, cause.Error())
	s.logger.WarnContext(ctx, "auth method verification failed",
		"process_id", p.ProcessID,
		"mobile_uid", p.MobileUID,
		"method", step.Method,
		"attempts", step.Attempts,
		"error", cause,
	)
	return cause
}

func (s *Service) exhaust(ctx context.Context, p *UserAuthSteps, step *Step, cause error) error {
	now := requestcontext.Now(ctx)
	step.close(StepResultFailure, now)
	p.setStatus(domain.StepsStatusFailure, step.Method, now)
	if err := s.save(ctx, p, now); err != nil {
		return err
	}
	s.metrics.IncAttemptsExceeded(string(p.Code), string(step.Method))
	s.emit(ctx, audit.EventAttemptsExceeded, p, step.Method, domain.ProcessCodeAttemptsExceeded, "")
	s.logger.WarnContext(ctx, "auth attempts exhausted",
		"process_id", p.ProcessID,
		"mobile_uid", p.MobileUID,
		"method", step.Method,
	)
	if cause == nil {
		return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeAttemptsExceeded, "attempts exceeded")
	}
	return dErrors.WrapProcess(cause, dErrors.CodeForbidden, domain.ProcessCodeAttemptsExceeded, "attempts exceeded")
}

// CompleteSteps finalizes a verified process. The staged minting parameters
// must still be present; req.Finalize consumes them before the transition, so
// a failure there leaves the process retryable.
func (s *Service) CompleteSteps(ctx context.Context, req CompleteRequest) (*UserAuthSteps, error) {
	codes := req.codes()
	if len(codes) == 0 || req.ProcessID == "" || req.MobileUID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "code, process id and mobile uid are required")
	}

	var p *UserAuthSteps
	err := s.withDevice(ctx, req.MobileUID, func(ctx context.Context) error {
		var err error
		p, err = s.find(ctx, req.ProcessID)
		if err != nil {
			return err
		}
		if p.MobileUID != req.MobileUID {
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeUserIdentifierMismatch, "process belongs to another device")
		}
		if p.IsRevoked {
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeProcessRevoked, "auth process was revoked")
		}
		if !containsCode(codes, p.Code) {
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeSchemaNotAdmitted,
				fmt.Sprintf("process is %s, expected one of %v", p.Code, codes))
		}
		if req.UserIdentifier != "" && p.UserIdentifier != req.UserIdentifier {
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeUserIdentifierMismatch, "process belongs to another user")
		}
		switch p.Status {
		case domain.StepsStatusCompleted:
			if s.cfg.ReplayPolicy == ReplayIdempotent {
				return nil
			}
			return dErrors.NewProcess(dErrors.CodeConflict, domain.ProcessCodeStepsAlreadyCompleted, "auth process already completed")
		case domain.StepsStatusSuccess:
		default:
			return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeStepsNotCompleted, "auth steps are not completed")
		}

		params, err := s.GetAuthorizationCacheData(ctx, p.Code, p.ProcessID)
		if err != nil {
			return err
		}
		if req.Finalize != nil {
			if err := req.Finalize(ctx, p, params); err != nil {
				return err
			}
		}

		now := requestcontext.Now(ctx)
		p.setStatus(domain.StepsStatusCompleted, "", now)
		if err := s.save(ctx, p, now); err != nil {
			return err
		}
		s.metrics.IncCompleted(string(p.Code))
		s.emit(ctx, audit.EventStepsCompleted, p, "", domain.ProcessCodeNone, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RevokeSubmitAfterUserAuthSteps cancels the device's processes of a schema
// after the action they authorized was abandoned.
func (s *Service) RevokeSubmitAfterUserAuthSteps(ctx context.Context, req RevokeRequest) (*RevokeResult, error) {
	if req.Code == "" || req.MobileUID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "code and mobile uid are required")
	}
	var n int
	err := s.withDevice(ctx, req.MobileUID, func(ctx context.Context) error {
		var err error
		n, err = s.store.RevokeMatching(ctx, req.Code, req.MobileUID, req.UserIdentifier)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke auth processes")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.emit(ctx, audit.EventStepsRevoked, &UserAuthSteps{
			Code:           req.Code,
			MobileUID:      req.MobileUID,
			UserIdentifier: req.UserIdentifier,
		}, "", domain.ProcessCodeNone, fmt.Sprintf("%d revoked", n))
	}
	return &RevokeResult{Success: true, RevokedActions: n}, nil
}

// GetAuthorizationCacheData reads the minting parameters staged by a verify.
func (s *Service) GetAuthorizationCacheData(ctx context.Context, code domain.SchemaCode, processID string) (*strategy.MintingParams, error) {
	return s.params.Load(ctx, code, processID)
}

func (s *Service) schema(ctx context.Context, code domain.SchemaCode) (*authschema.Schema, error) {
	schema, err := s.catalog.Get(code)
	if err != nil {
		s.logger.ErrorContext(ctx, "schema missing from catalog", "schema", code, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnhandledCase, "schema not configured")
	}
	return schema, nil
}

func (s *Service) find(ctx context.Context, processID string) (*UserAuthSteps, error) {
	p, err := s.store.FindByProcessID(ctx, processID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeRequestExpired, "auth process not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load auth process")
	}
	return p, nil
}

// load returns a live process owned by the device.
func (s *Service) load(ctx context.Context, processID, mobileUID string) (*UserAuthSteps, error) {
	p, err := s.find(ctx, processID)
	if err != nil {
		return nil, err
	}
	if p.IsRevoked {
		return nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeProcessRevoked, "auth process was revoked")
	}
	if p.MobileUID != mobileUID {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeUserIdentifierMismatch, "process belongs to another device")
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *UserAuthSteps, now time.Time) error {
	p.UpdatedAt = now
	if err := s.store.Update(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save auth process")
	}
	return nil
}

// expireOpenStep closes an open step whose TTL has passed.
func (s *Service) expireOpenStep(schema *authschema.Schema, p *UserAuthSteps, now time.Time) bool {
	open := p.OpenStep()
	if open == nil {
		return false
	}
	cfg, _, ok := stepConfig(schema, p, open.Method)
	if !ok || cfg.TTL <= 0 {
		return false
	}
	if now.Before(open.StartDate.Add(time.Duration(cfg.TTL))) {
		return false
	}
	open.close(StepResultExpired, now)
	return true
}

func (s *Service) unhandled(ctx context.Context, p *UserAuthSteps, method domain.Method) error {
	s.logger.ErrorContext(ctx, "unhandled method for schema",
		"process_id", p.ProcessID,
		"schema", p.Code,
		"method", method,
		"status", p.Status,
	)
	return dErrors.New(dErrors.CodeUnhandledCase, fmt.Sprintf("unhandled method %s for schema %s in status %s", method, p.Code, p.Status))
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, p *UserAuthSteps, method domain.Method, pc domain.ProcessCode, reason string) {
	if s.events == nil {
		return
	}
	subject := p.UserIdentifier
	if subject == "" {
		subject = p.MobileUID
	}
	event := audit.Event{
		Subject:    subject,
		MobileUID:  p.MobileUID,
		Action:     string(action),
		ProcessID:  p.ProcessID,
		SchemaCode: string(p.Code),
		Method:     string(method),
		Outcome:    string(p.Status),
		Reason:     reason,
	}
	if pc != domain.ProcessCodeNone {
		event.ProcessCode = pc.String()
	}
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "auth steps audit event not recorded", "action", action, "error", err)
	}
}

// stepConfig returns the limits for method at the process's position. sub is
// true when method follows a successful top-level step.
func stepConfig(schema *authschema.Schema, p *UserAuthSteps, method domain.Method) (cfg authschema.MethodConfig, sub bool, ok bool) {
	if parent := p.lastSuccess(); parent != nil && schema.HasMethod(parent.Method) {
		cfg, ok = schema.SubMethodConfig(parent.Method, method)
		return cfg, true, ok
	}
	cfg, ok = schema.MethodConfig[method]
	return cfg, false, ok && schema.HasMethod(method)
}

// allowedMethods ignores any open step: qualifying sub-methods after a
// top-level success, otherwise the schema's methods not ruled out by conditions.
func allowedMethods(schema *authschema.Schema, p *UserAuthSteps) []domain.Method {
	if parent := p.lastSuccess(); parent != nil && schema.HasMethod(parent.Method) {
		return schema.QualifyingSubMethods(parent.Method, p.Conditions)
	}
	out := make([]domain.Method, 0, len(schema.Methods))
	for _, m := range schema.Methods {
		if schema.MethodConfig[m].Qualifies(p.Conditions) {
			out = append(out, m)
		}
	}
	return out
}

func containsMethod(methods []domain.Method, m domain.Method) bool {
	for _, candidate := range methods {
		if candidate == m {
			return true
		}
	}
	return false
}

func containsCode(codes []domain.SchemaCode, c domain.SchemaCode) bool {
	for _, candidate := range codes {
		if candidate == c {
			return true
		}
	}
	return false
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func timeoutAware(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		var de *dErrors.Error
		if !errors.As(err, &de) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
		}
	}
	return err
}
