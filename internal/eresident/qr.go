// Package eresident runs the e-resident QR confirmation: the app scans a code
// issued by the e-residency registry, the registry confirms the holder
// asynchronously, and first authentication continues once the result arrives.
package eresident

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"idauth/internal/authmethod"
	"idauth/internal/challenge"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/requestcontext"
)

const qrPrefix = "ERES1:"

// QrResult is the registry's confirmation of a scanned code.
type QrResult struct {
	Confirmed  bool                 `json:"confirmed"`
	Reason     string               `json:"reason,omitempty"`
	Surname    string               `json:"surname,omitempty"`
	GivenNames string               `json:"givenNames,omitempty"`
	BirthDate  string               `json:"birthDate,omitempty"`
	Email      string               `json:"email,omitempty"`
	Document   *authmethod.Document `json:"document,omitempty"`
}

// QrCapability plugs the QR confirmation into the challenge correlator.
type QrCapability struct {
	Topic string
}

func (QrCapability) Kind() challenge.Kind { return challenge.KindEResidentQr }

func (c QrCapability) RequestTopic() string { return c.Topic }

func (QrCapability) LaunchPayload(ch *challenge.Challenge, statement string) (any, error) {
	code, ok := strings.CutPrefix(strings.TrimSpace(statement), qrPrefix)
	if !ok || code == "" {
		return nil, errors.New("unrecognized qr code")
	}
	return map[string]string{"code": code, "mobileUid": ch.MobileUID}, nil
}

func (QrCapability) Evaluate(_ *challenge.Challenge, r QrResult) error {
	if !r.Confirmed {
		if r.Reason == "" {
			return errors.New("qr code not confirmed")
		}
		return errors.New(r.Reason)
	}
	if r.Document == nil {
		return errors.New("confirmation carries no document")
	}
	return nil
}

// Correlator is the QR instantiation of the challenge correlator.
type Correlator interface {
	Create(ctx context.Context, userIdentifier string, headers domain.Headers) (*challenge.Challenge, error)
	Launch(ctx context.Context, userIdentifier, mobileUID, statement, nonce string) (*challenge.Challenge, error)
	Get(ctx context.Context, mobileUID string) (*challenge.Challenge, error)
}

// Confirmations starts QR confirmations and reads their results.
type Confirmations struct {
	correlator Correlator
	ttl        time.Duration
	logger     *slog.Logger
}

func NewConfirmations(correlator Correlator, ttl time.Duration, logger *slog.Logger) *Confirmations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Confirmations{correlator: correlator, ttl: ttl, logger: logger}
}

// Start creates a challenge for the device and submits the scanned code.
// The returned nonce identifies the confirmation.
func (c *Confirmations) Start(ctx context.Context, headers domain.Headers, qrPayload string) (*challenge.Challenge, error) {
	ch, err := c.correlator.Create(ctx, "", headers)
	if err != nil {
		return nil, err
	}
	launched, err := c.correlator.Launch(ctx, "", headers.MobileUID, qrPayload, ch.Nonce)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			return nil, dErrors.WrapProcess(err, dErrors.CodeBadRequest, domain.ProcessCodeDocumentMismatch, "invalid qr code")
		}
		return nil, err
	}
	return launched, nil
}

// ExpiresAt is when a confirmation started at createdAt stops being usable.
func (c *Confirmations) ExpiresAt(createdAt time.Time) time.Time {
	return createdAt.Add(c.ttl)
}

// Result returns the confirmed holder data for nonce. Pending confirmations
// are reported as not yet verified so the client can retry.
func (c *Confirmations) Result(ctx context.Context, mobileUID, nonce string) (*QrResult, error) {
	ch, err := c.correlator.Get(ctx, mobileUID)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, dErrors.WrapProcess(err, dErrors.CodeNotFound, domain.ProcessCodeRequestExpired, "qr confirmation expired")
	}
	if err != nil {
		return nil, err
	}
	if ch.Nonce != nonce {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeRequestExpired, "unknown request id")
	}
	if !requestcontext.Now(ctx).Before(c.ExpiresAt(ch.CreatedAt)) {
		return nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeRequestExpired, "qr confirmation expired")
	}

	switch ch.Status {
	case challenge.StatusCreated, challenge.StatusLaunched:
		return nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeDocumentNotVerified, "qr confirmation pending")
	case challenge.StatusFailed:
		c.logger.InfoContext(ctx, "qr confirmation failed", "mobile_uid", mobileUID, "reason", ch.Error)
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeDocumentNotVerified, "qr code not confirmed")
	}

	var res QrResult
	if err := json.Unmarshal(ch.ResultData, &res); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode qr confirmation")
	}
	return &res, nil
}
