// Package qes implements qualified electronic signature verification: the
// device signs a server-issued challenge with its qualified certificate and the
// external signature service reports the certificate owner.
package qes

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"

	"idauth/internal/authmethod"
	"idauth/internal/platform/httpclient"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

const dataKey = "dataToSign"

// OwnerInfo describes the certificate that produced a valid signature.
type OwnerInfo struct {
	TaxID        string `json:"taxId"`
	FullName     string `json:"fullName"`
	SerialNumber string `json:"serialNumber"`
}

// ErrInvalidSignature is returned by verifiers for signatures that do not verify.
var ErrInvalidSignature = errors.New("invalid signature")

//go:generate mockgen -source=qes.go -destination=mocks/mocks.go -package=mocks SignatureVerifier

// SignatureVerifier checks a detached signature over data.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, signature, data string) (*OwnerInfo, error)
}

type Provider struct {
	verifier SignatureVerifier
	requests *authmethod.RequestCache
	logger   *slog.Logger
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func New(verifier SignatureVerifier, requests *authmethod.RequestCache, opts ...Option) *Provider {
	p := &Provider{verifier: verifier, requests: requests, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Method() domain.Method {
	return domain.MethodQes
}

func (p *Provider) RequestAuthorizationURL(ctx context.Context, ops authmethod.RequestOptions, headers domain.Headers, schemaCode domain.SchemaCode) (*authmethod.AuthorizationURL, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate signing challenge")
	}
	data := base64.StdEncoding.EncodeToString(buf)
	req, err := p.requests.Start(ctx, headers, ops, schemaCode, map[string]string{dataKey: data})
	if err != nil {
		return nil, err
	}
	return &authmethod.AuthorizationURL{Token: data, RequestID: req.RequestID, ExpiresAt: req.ExpiresAt}, nil
}

func (p *Provider) Verify(ctx context.Context, requestID string, params authmethod.VerifyParams) (*authmethod.IdentityPayload, error) {
	if params.Signature == "" {
		return nil, dErrors.NewProcess(dErrors.CodeBadRequest, domain.ProcessCodeSignatureInvalid, "signature is required")
	}
	mobileUID := params.Headers.MobileUID
	req, err := p.requests.Load(ctx, mobileUID, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = p.requests.Clear(ctx, mobileUID) }()

	owner, err := p.verifier.VerifySignature(ctx, params.Signature, req.Data[dataKey])
	if errors.Is(err, ErrInvalidSignature) {
		return nil, dErrors.WrapProcess(err, dErrors.CodeForbidden, domain.ProcessCodeSignatureInvalid, "signature verification failed")
	}
	if err != nil {
		p.logger.ErrorContext(ctx, "signature service call failed", "mobile_uid", mobileUID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signature service unavailable")
	}
	if owner.TaxID == "" {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeSignatureInvalid, "certificate carries no tax id")
	}
	return &authmethod.IdentityPayload{
		Method:     domain.MethodQes,
		TaxID:      owner.TaxID,
		LastName:   owner.FullName,
		Attributes: map[string]string{"certificateSerial": owner.SerialNumber},
	}, nil
}

// HTTPVerifier calls the signature verification service. Construct the client
// with httpclient.WithRateLimit to respect the service quota.
type HTTPVerifier struct {
	http *httpclient.Client
}

func NewHTTPVerifier(http *httpclient.Client) *HTTPVerifier {
	return &HTTPVerifier{http: http}
}

type verifyResponse struct {
	Valid bool      `json:"valid"`
	Owner OwnerInfo `json:"owner"`
}

func (v *HTTPVerifier) VerifySignature(ctx context.Context, signature, data string) (*OwnerInfo, error) {
	var resp verifyResponse
	if err := v.http.PostJSON(ctx, "/v1/signatures/verify", map[string]string{
		"signature": signature,
		"data":      data,
	}, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, ErrInvalidSignature
	}
	return &resp.Owner, nil
}
