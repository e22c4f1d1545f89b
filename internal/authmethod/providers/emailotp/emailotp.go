// Package emailotp implements one-time code verification over email, used by
// e-resident applicants who have no document on record yet.
package emailotp

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"idauth/internal/authmethod"
	"idauth/internal/platform/kafka"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/email"
)

const (
	codeLength      = 6
	hashKey         = "codeHash"
	emailKey        = "email"
	defaultAttempts = 3
	bcryptCost      = bcrypt.MinCost + 2
	radix           = 10
)

//go:generate mockgen -source=emailotp.go -destination=mocks/mocks.go -package=mocks Mailer

// Mailer delivers the code to the applicant.
type Mailer interface {
	SendCode(ctx context.Context, to, code string) error
}

type Provider struct {
	mailer      Mailer
	requests    *authmethod.RequestCache
	maxAttempts int
	logger      *slog.Logger
}

type Option func(*Provider)

// WithMaxAttempts bounds wrong code submissions per issued code.
func WithMaxAttempts(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func New(mailer Mailer, requests *authmethod.RequestCache, opts ...Option) *Provider {
	p := &Provider{mailer: mailer, requests: requests, maxAttempts: defaultAttempts, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Method() domain.Method {
	return domain.MethodEmailOtp
}

// RequestAuthorizationURL issues a fresh code and mails it. The returned token
// is empty: the code never travels back through the API.
func (p *Provider) RequestAuthorizationURL(ctx context.Context, ops authmethod.RequestOptions, headers domain.Headers, schemaCode domain.SchemaCode) (*authmethod.AuthorizationURL, error) {
	addr, err := email.Normalize(ops.Email)
	if err != nil {
		return nil, dErrors.WrapProcess(err, dErrors.CodeBadRequest, domain.ProcessCodeOtpInvalid, "valid email is required")
	}
	code, err := generateCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}
	req, err := p.requests.Start(ctx, headers, ops, schemaCode, map[string]string{
		hashKey:  string(hash),
		emailKey: addr,
	})
	if err != nil {
		return nil, err
	}
	if err := p.mailer.SendCode(ctx, addr, code); err != nil {
		_ = p.requests.Clear(ctx, headers.MobileUID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to send code")
	}
	p.logger.InfoContext(ctx, "email code issued", "mobile_uid", headers.MobileUID, "request_id", req.RequestID)
	return &authmethod.AuthorizationURL{RequestID: req.RequestID, ExpiresAt: req.ExpiresAt}, nil
}

func (p *Provider) Verify(ctx context.Context, requestID string, params authmethod.VerifyParams) (*authmethod.IdentityPayload, error) {
	if strings.TrimSpace(params.Code) == "" {
		return nil, dErrors.NewProcess(dErrors.CodeBadRequest, domain.ProcessCodeOtpInvalid, "code is required")
	}
	mobileUID := params.Headers.MobileUID
	req, err := p.requests.Load(ctx, mobileUID, requestID)
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(req.Data[hashKey]), []byte(strings.TrimSpace(params.Code))) != nil {
		req.Attempts++
		if req.Attempts >= p.maxAttempts {
			_ = p.requests.Clear(ctx, mobileUID)
			p.logger.WarnContext(ctx, "email code attempts exhausted", "mobile_uid", mobileUID)
			return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeOtpInvalid, "code attempts exhausted")
		}
		if err := p.requests.Save(ctx, req); err != nil {
			return nil, err
		}
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeOtpInvalid, "code does not match")
	}
	if err := p.requests.Clear(ctx, mobileUID); err != nil {
		return nil, err
	}

	addr := req.Data[emailKey]
	first, last := email.NameParts(addr)
	return &authmethod.IdentityPayload{
		Method:    domain.MethodEmailOtp,
		Email:     addr,
		FirstName: first,
		LastName:  last,
	}, nil
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for range codeLength {
		limit.Mul(limit, big.NewInt(radix))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n.Int64()), nil
}

// BusMailer hands the code to the notification service over the message bus.
type BusMailer struct {
	publisher kafka.Publisher
	topic     string
}

func NewBusMailer(publisher kafka.Publisher, topic string) *BusMailer {
	return &BusMailer{publisher: publisher, topic: topic}
}

type mailRequest struct {
	Template string `json:"template"`
	To       string `json:"to"`
	Code     string `json:"code"`
}

func (m *BusMailer) SendCode(ctx context.Context, to, code string) error {
	body, err := json.Marshal(mailRequest{Template: "eresident-otp", To: to, Code: code})
	if err != nil {
		return err
	}
	return m.publisher.Publish(ctx, &kafka.Message{
		Topic: m.topic,
		Key:   []byte(to),
		Value: body,
	})
}
