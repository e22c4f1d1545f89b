// Package photoid implements photo identification: a liveness selfie captured
// by the device SDK is matched against the registry photo of a document holder.
package photoid

import (
	"context"
	"log/slog"

	"idauth/internal/authmethod"
	"idauth/internal/platform/httpclient"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

// Match is the comparison verdict.
type Match struct {
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
	TaxID   string  `json:"taxId"`
}

//go:generate mockgen -source=photoid.go -destination=mocks/mocks.go -package=mocks Verifier

// Verifier compares a captured session against registry photos.
type Verifier interface {
	Compare(ctx context.Context, requestID, sessionToken string) (*Match, error)
}

type Provider struct {
	verifier Verifier
	requests *authmethod.RequestCache
	minScore float64
	logger   *slog.Logger
}

type Option func(*Provider)

func WithMinScore(score float64) Option {
	return func(p *Provider) {
		p.minScore = score
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func New(verifier Verifier, requests *authmethod.RequestCache, opts ...Option) *Provider {
	p := &Provider{verifier: verifier, requests: requests, minScore: 0.8, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Method() domain.Method {
	return domain.MethodPhotoID
}

func (p *Provider) RequestAuthorizationURL(ctx context.Context, ops authmethod.RequestOptions, headers domain.Headers, schemaCode domain.SchemaCode) (*authmethod.AuthorizationURL, error) {
	req, err := p.requests.Start(ctx, headers, ops, schemaCode, nil)
	if err != nil {
		return nil, err
	}
	return &authmethod.AuthorizationURL{Token: req.RequestID, RequestID: req.RequestID, ExpiresAt: req.ExpiresAt}, nil
}

func (p *Provider) Verify(ctx context.Context, requestID string, params authmethod.VerifyParams) (*authmethod.IdentityPayload, error) {
	if params.PhotoToken == "" {
		return nil, dErrors.NewProcess(dErrors.CodeBadRequest, domain.ProcessCodePhotoIDFailed, "photo session token is required")
	}
	mobileUID := params.Headers.MobileUID
	if _, err := p.requests.Load(ctx, mobileUID, requestID); err != nil {
		return nil, err
	}
	defer func() { _ = p.requests.Clear(ctx, mobileUID) }()

	match, err := p.verifier.Compare(ctx, requestID, params.PhotoToken)
	if err != nil {
		p.logger.WarnContext(ctx, "photo comparison failed", "mobile_uid", mobileUID, "error", err)
		return nil, dErrors.WrapProcess(err, dErrors.CodeForbidden, domain.ProcessCodePhotoIDFailed, "photo identification failed")
	}
	if !match.Matched || match.Score < p.minScore {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodePhotoIDFailed, "photo does not match")
	}
	return &authmethod.IdentityPayload{Method: domain.MethodPhotoID, TaxID: match.TaxID}, nil
}

// HTTPVerifier calls the photo comparison service.
type HTTPVerifier struct {
	http *httpclient.Client
}

func NewHTTPVerifier(http *httpclient.Client) *HTTPVerifier {
	return &HTTPVerifier{http: http}
}

func (v *HTTPVerifier) Compare(ctx context.Context, requestID, sessionToken string) (*Match, error) {
	var m Match
	err := v.http.PostJSON(ctx, "/v1/photo/compare", map[string]string{
		"requestId":    requestID,
		"sessionToken": sessionToken,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
