package authmethod

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"idauth/internal/platform/kvcache"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/requestcontext"
)

// PendingRequest is the correlation state a provider keeps between its
// authorization URL and verify calls.
type PendingRequest struct {
	RequestID  string            `json:"requestId"`
	MobileUID  string            `json:"mobileUid"`
	SchemaCode domain.SchemaCode `json:"schemaCode,omitempty"`
	ProcessID  string            `json:"processId,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	Attempts   int               `json:"attempts,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// RequestCache stores at most one pending request per (method, device).
// A newer request for the same device replaces the older one.
type RequestCache struct {
	cache  kvcache.Cache
	method domain.Method
	ttl    time.Duration
}

func NewRequestCache(cache kvcache.Cache, method domain.Method, ttl time.Duration) *RequestCache {
	return &RequestCache{cache: cache, method: method, ttl: ttl}
}

func (c *RequestCache) key(mobileUID string) string {
	return "authmethod:" + string(c.method) + ":" + mobileUID
}

// TTL is the lifetime of a pending request.
func (c *RequestCache) TTL() time.Duration {
	return c.ttl
}

// Start creates and stores a new pending request for the device.
func (c *RequestCache) Start(ctx context.Context, headers domain.Headers, ops RequestOptions, schemaCode domain.SchemaCode, data map[string]string) (*PendingRequest, error) {
	now := requestcontext.Now(ctx)
	req := &PendingRequest{
		RequestID:  uuid.NewString(),
		MobileUID:  headers.MobileUID,
		SchemaCode: schemaCode,
		ProcessID:  ops.ProcessID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.ttl),
		Data:       data,
	}
	if err := c.Save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Save overwrites the pending request, keeping its original expiry.
func (c *RequestCache) Save(ctx context.Context, req *PendingRequest) error {
	ttl := req.ExpiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return c.Clear(ctx, req.MobileUID)
	}
	if err := kvcache.SetJSON(ctx, c.cache, c.key(req.MobileUID), req, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store provider request")
	}
	return nil
}

// Load returns the device's pending request and checks that it is the one the
// client refers to. A missing request has expired; a different id is an
// unknown correlation id.
func (c *RequestCache) Load(ctx context.Context, mobileUID, requestID string) (*PendingRequest, error) {
	req, err := kvcache.GetJSON[PendingRequest](ctx, c.cache, c.key(mobileUID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeRequestExpired, "authorization request expired")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider request")
	}
	if req.RequestID != requestID {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeRequestExpired, "unknown request id")
	}
	if !requestcontext.Now(ctx).Before(req.ExpiresAt) {
		_ = c.Clear(ctx, mobileUID)
		return nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeRequestExpired, "authorization request expired")
	}
	return req, nil
}

// Clear removes the device's pending request.
func (c *RequestCache) Clear(ctx context.Context, mobileUID string) error {
	if err := c.cache.Delete(ctx, c.key(mobileUID)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear provider request")
	}
	return nil
}
