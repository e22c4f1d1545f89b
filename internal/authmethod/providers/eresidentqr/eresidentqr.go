// Package eresidentqr authenticates e-residents by a registry-issued QR code.
// Confirmation is asynchronous; verify succeeds once the registry has confirmed
// the code scanned on this device.
package eresidentqr

import (
	"context"
	"strings"
	"time"

	"idauth/internal/authmethod"
	"idauth/internal/challenge"
	"idauth/internal/eresident"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

//go:generate mockgen -source=eresidentqr.go -destination=mocks/mocks.go -package=mocks Confirmations

// Confirmations is the QR confirmation flow.
type Confirmations interface {
	Start(ctx context.Context, headers domain.Headers, qrPayload string) (*challenge.Challenge, error)
	Result(ctx context.Context, mobileUID, nonce string) (*eresident.QrResult, error)
	ExpiresAt(createdAt time.Time) time.Time
}

type Provider struct {
	confirmations Confirmations
	countries     *authmethod.CountryAllowList
}

func New(confirmations Confirmations, countries *authmethod.CountryAllowList) *Provider {
	return &Provider{confirmations: confirmations, countries: countries}
}

func (p *Provider) Method() domain.Method {
	return domain.MethodEResidentQrCode
}

func (p *Provider) RequestAuthorizationURL(ctx context.Context, ops authmethod.RequestOptions, headers domain.Headers, _ domain.SchemaCode) (*authmethod.AuthorizationURL, error) {
	if strings.TrimSpace(ops.QrPayload) == "" {
		return nil, dErrors.NewProcess(dErrors.CodeBadRequest, domain.ProcessCodeDocumentMismatch, "qr payload is required")
	}
	ch, err := p.confirmations.Start(ctx, headers, ops.QrPayload)
	if err != nil {
		return nil, err
	}
	return &authmethod.AuthorizationURL{
		Token:     ch.Nonce,
		RequestID: ch.Nonce,
		ExpiresAt: p.confirmations.ExpiresAt(ch.CreatedAt),
	}, nil
}

func (p *Provider) Verify(ctx context.Context, requestID string, params authmethod.VerifyParams) (*authmethod.IdentityPayload, error) {
	res, err := p.confirmations.Result(ctx, params.Headers.MobileUID, requestID)
	if err != nil {
		return nil, err
	}
	if err := p.countries.Check(res.Document.Country); err != nil {
		return nil, err
	}
	return &authmethod.IdentityPayload{
		Method:    domain.MethodEResidentQrCode,
		FirstName: res.GivenNames,
		LastName:  res.Surname,
		BirthDate: res.BirthDate,
		Email:     res.Email,
		Document:  res.Document,
	}, nil
}
