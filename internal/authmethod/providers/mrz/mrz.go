// Package mrz implements e-resident document verification from a scanned
// machine readable zone, confirmed against the e-residency registry.
package mrz

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"idauth/internal/authmethod"
	"idauth/internal/platform/httpclient"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/requestcontext"
)

// Resident is the registry record for an e-resident document.
type Resident struct {
	Surname    string `json:"surname"`
	GivenNames string `json:"givenNames"`
	Email      string `json:"email"`
	HasPhoto   bool   `json:"hasPhoto"`
}

// ErrResidentNotFound is returned by registries for unknown documents.
var ErrResidentNotFound = errors.New("resident not found")

//go:generate mockgen -source=mrz.go -destination=mocks/mocks.go -package=mocks Registry

// Registry looks up e-resident documents.
type Registry interface {
	FindByDocument(ctx context.Context, country, number string) (*Resident, error)
}

type Provider struct {
	registry  Registry
	requests  *authmethod.RequestCache
	countries *authmethod.CountryAllowList
	logger    *slog.Logger
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func New(registry Registry, requests *authmethod.RequestCache, countries *authmethod.CountryAllowList, opts ...Option) *Provider {
	p := &Provider{registry: registry, requests: requests, countries: countries, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Method() domain.Method {
	return domain.MethodEResidentMrz
}

func (p *Provider) RequestAuthorizationURL(ctx context.Context, ops authmethod.RequestOptions, headers domain.Headers, schemaCode domain.SchemaCode) (*authmethod.AuthorizationURL, error) {
	req, err := p.requests.Start(ctx, headers, ops, schemaCode, nil)
	if err != nil {
		return nil, err
	}
	return &authmethod.AuthorizationURL{Token: req.RequestID, RequestID: req.RequestID, ExpiresAt: req.ExpiresAt}, nil
}

func (p *Provider) Verify(ctx context.Context, requestID string, params authmethod.VerifyParams) (*authmethod.IdentityPayload, error) {
	if len(params.MRZ) == 0 {
		return nil, dErrors.NewProcess(dErrors.CodeBadRequest, domain.ProcessCodeDocumentMismatch, "machine readable zone is required")
	}
	mobileUID := params.Headers.MobileUID
	if _, err := p.requests.Load(ctx, mobileUID, requestID); err != nil {
		return nil, err
	}

	data, err := Parse(params.MRZ)
	if err != nil {
		return nil, dErrors.WrapProcess(err, dErrors.CodeBadRequest, domain.ProcessCodeDocumentMismatch, "invalid machine readable zone")
	}
	if err := p.countries.Check(data.IssuingCountry); err != nil {
		return nil, err
	}
	if data.Expired(requestcontext.Now(ctx)) {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeDocumentNotVerified, "document has expired")
	}

	resident, err := p.registry.FindByDocument(ctx, data.IssuingCountry, data.DocumentNumber)
	if errors.Is(err, ErrResidentNotFound) {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeDocumentNotVerified, "document is not registered")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "e-residency registry lookup failed")
	}
	if !strings.EqualFold(resident.Surname, data.Surname) {
		p.logger.WarnContext(ctx, "mrz surname does not match registry", "mobile_uid", mobileUID)
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeDocumentMismatch, "document holder does not match registry")
	}
	_ = p.requests.Clear(ctx, mobileUID)

	return &authmethod.IdentityPayload{
		Method:    domain.MethodEResidentMrz,
		FirstName: data.GivenNames,
		LastName:  data.Surname,
		BirthDate: data.BirthDate,
		Email:     resident.Email,
		Document: &authmethod.Document{
			Type:       data.DocumentType,
			Number:     data.DocumentNumber,
			Country:    data.IssuingCountry,
			ExpiryDate: data.ExpiryDate,
			HasPhoto:   resident.HasPhoto,
		},
	}, nil
}

// HTTPRegistry queries the e-residency registry service.
type HTTPRegistry struct {
	http *httpclient.Client
}

func NewHTTPRegistry(http *httpclient.Client) *HTTPRegistry {
	return &HTTPRegistry{http: http}
}

func (r *HTTPRegistry) FindByDocument(ctx context.Context, country, number string) (*Resident, error) {
	var res Resident
	err := r.http.GetJSON(ctx, "/v1/residents/"+country+"/"+number, nil, &res)
	var se *httpclient.StatusError
	if errors.As(err, &se) && se.StatusCode == 404 {
		return nil, ErrResidentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
