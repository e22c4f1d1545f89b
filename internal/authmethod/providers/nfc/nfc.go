// Package nfc implements document chip reading. The device reads the chip and
// submits it to the document registry; the registry's verdict arrives on the
// message bus and is matched to the pending request by request id.
package nfc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"idauth/internal/authmethod"
	"idauth/internal/platform/kafka"
	"idauth/internal/platform/kvcache"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/sentinel"
)

// Result is the registry verdict for one chip read.
type Result struct {
	RequestID  string               `json:"requestId"`
	MobileUID  string               `json:"mobileUid"`
	Success    bool                 `json:"success"`
	Error      string               `json:"error,omitempty"`
	TaxID      string               `json:"taxId,omitempty"`
	FirstName  string               `json:"firstName,omitempty"`
	LastName   string               `json:"lastName,omitempty"`
	MiddleName string               `json:"middleName,omitempty"`
	BirthDate  string               `json:"birthDate,omitempty"`
	Document   *authmethod.Document `json:"document,omitempty"`
}

type Provider struct {
	method    domain.Method
	requests  *authmethod.RequestCache
	results   kvcache.Cache
	countries *authmethod.CountryAllowList
	logger    *slog.Logger
}

type Option func(*Provider)

// WithAllowedCountries enables the issuing-country check.
func WithAllowedCountries(l *authmethod.CountryAllowList) Option {
	return func(p *Provider) {
		p.countries = l
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func New(method domain.Method, requests *authmethod.RequestCache, results kvcache.Cache, opts ...Option) *Provider {
	p := &Provider{method: method, requests: requests, results: results, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Method() domain.Method {
	return p.method
}

func resultKey(requestID string) string {
	return "nfc:result:" + requestID
}

func (p *Provider) RequestAuthorizationURL(ctx context.Context, ops authmethod.RequestOptions, headers domain.Headers, schemaCode domain.SchemaCode) (*authmethod.AuthorizationURL, error) {
	req, err := p.requests.Start(ctx, headers, ops, schemaCode, nil)
	if err != nil {
		return nil, err
	}
	return &authmethod.AuthorizationURL{Token: req.RequestID, RequestID: req.RequestID, ExpiresAt: req.ExpiresAt}, nil
}

func (p *Provider) Verify(ctx context.Context, requestID string, params authmethod.VerifyParams) (*authmethod.IdentityPayload, error) {
	mobileUID := params.Headers.MobileUID
	if _, err := p.requests.Load(ctx, mobileUID, requestID); err != nil {
		return nil, err
	}
	res, err := kvcache.GetJSON[Result](ctx, p.results, resultKey(requestID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeDocumentNotVerified, "document verification result not received yet")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document verification result")
	}
	if res.MobileUID != mobileUID {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeNfcFailed, "verification result belongs to another device")
	}

	_ = p.requests.Clear(ctx, mobileUID)
	_ = p.results.Delete(ctx, resultKey(requestID))

	if !res.Success {
		p.logger.InfoContext(ctx, "document chip verification failed",
			"mobile_uid", mobileUID,
			"reason", res.Error,
		)
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeNfcFailed, "document chip verification failed")
	}
	if res.Document == nil {
		return nil, dErrors.NewProcess(dErrors.CodeBadRequest, domain.ProcessCodeNfcFailed, "verification result has no document")
	}
	if p.countries != nil {
		if err := p.countries.Check(res.Document.Country); err != nil {
			return nil, err
		}
	}
	doc := *res.Document
	doc.HasPhoto = true // chip reads always carry the holder photo
	return &authmethod.IdentityPayload{
		Method:     p.method,
		TaxID:      res.TaxID,
		FirstName:  res.FirstName,
		LastName:   res.LastName,
		MiddleName: res.MiddleName,
		BirthDate:  res.BirthDate,
		Document:   &doc,
	}, nil
}

// ResultHandler stores registry verdicts delivered on the bus.
type ResultHandler struct {
	results kvcache.Cache
	ttl     time.Duration
}

func NewResultHandler(results kvcache.Cache, ttl time.Duration) *ResultHandler {
	return &ResultHandler{results: results, ttl: ttl}
}

func (h *ResultHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var res Result
	if err := json.Unmarshal(msg.Value, &res); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "decode nfc result")
	}
	if res.RequestID == "" || res.MobileUID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "nfc result without request id or device")
	}
	return kvcache.SetJSON(ctx, h.results, resultKey(res.RequestID), res, h.ttl)
}
