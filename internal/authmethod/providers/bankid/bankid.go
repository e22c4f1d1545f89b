// Package bankid implements the bank redirect verification flow. One Provider
// instance serves one bank.
package bankid

import (
	"context"
	"log/slog"
	"net/url"

	"idauth/internal/authmethod"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

// Bank describes one bank integration.
type Bank struct {
	Method       domain.Method
	ID           string
	AuthorizeURL string
	ClientID     string
}

// UserInfo is the identity a bank returns for an authorization code.
type UserInfo struct {
	TaxID      string               `json:"taxId"`
	FirstName  string               `json:"firstName"`
	LastName   string               `json:"lastName"`
	MiddleName string               `json:"middleName"`
	BirthDate  string               `json:"birthDate"`
	Phone      string               `json:"phone"`
	Email      string               `json:"email"`
	Document   *authmethod.Document `json:"document"`
}

//go:generate mockgen -source=bankid.go -destination=mocks/mocks.go -package=mocks Client

// Client exchanges an authorization code for the customer's identity.
type Client interface {
	Exchange(ctx context.Context, bank Bank, code, redirectURI string) (*UserInfo, error)
}

type Provider struct {
	bank        Bank
	callbackURL string
	client      Client
	requests    *authmethod.RequestCache
	logger      *slog.Logger
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func New(bank Bank, callbackURL string, client Client, requests *authmethod.RequestCache, opts ...Option) *Provider {
	p := &Provider{
		bank:        bank,
		callbackURL: callbackURL,
		client:      client,
		requests:    requests,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Method() domain.Method {
	return p.bank.Method
}

func (p *Provider) RequestAuthorizationURL(ctx context.Context, ops authmethod.RequestOptions, headers domain.Headers, schemaCode domain.SchemaCode) (*authmethod.AuthorizationURL, error) {
	req, err := p.requests.Start(ctx, headers, ops, schemaCode, nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.bank.ClientID)
	q.Set("bank_id", p.bank.ID)
	q.Set("redirect_uri", p.callbackURL)
	q.Set("state", req.RequestID)
	return &authmethod.AuthorizationURL{
		URL:       p.bank.AuthorizeURL + "?" + q.Encode(),
		RequestID: req.RequestID,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

func (p *Provider) Verify(ctx context.Context, requestID string, params authmethod.VerifyParams) (*authmethod.IdentityPayload, error) {
	if params.Code == "" {
		return nil, dErrors.NewProcess(dErrors.CodeBadRequest, domain.ProcessCodeBankAuthFailed, "authorization code is required")
	}
	mobileUID := params.Headers.MobileUID
	if _, err := p.requests.Load(ctx, mobileUID, requestID); err != nil {
		return nil, err
	}
	// codes are single use, so the request is spent whatever the bank says
	defer func() { _ = p.requests.Clear(ctx, mobileUID) }()

	info, err := p.client.Exchange(ctx, p.bank, params.Code, p.callbackURL)
	if err != nil {
		p.logger.WarnContext(ctx, "bank code exchange failed",
			"bank", p.bank.ID,
			"mobile_uid", mobileUID,
			"error", err,
		)
		return nil, dErrors.WrapProcess(err, dErrors.CodeForbidden, domain.ProcessCodeBankAuthFailed, "bank authorization failed")
	}
	if info.TaxID == "" {
		return nil, dErrors.NewProcess(dErrors.CodeBadRequest, domain.ProcessCodeBankAuthFailed, "bank returned no tax id")
	}
	return &authmethod.IdentityPayload{
		Method:     p.bank.Method,
		TaxID:      info.TaxID,
		FirstName:  info.FirstName,
		LastName:   info.LastName,
		MiddleName: info.MiddleName,
		BirthDate:  info.BirthDate,
		Phone:      info.Phone,
		Email:      info.Email,
		Document:   info.Document,
	}, nil
}
