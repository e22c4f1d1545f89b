package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"idauth/internal/authmethod"
	"idauth/internal/platform/kvcache"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/sentinel"
)

// MintingParams is what a completed process hands to token issuance.
type MintingParams struct {
	Schema         domain.SchemaCode    `json:"schema"`
	Method         domain.Method        `json:"method"`
	SessionType    domain.SessionType   `json:"sessionType,omitempty"`
	UserIdentifier string               `json:"userIdentifier"`
	FirstName      string               `json:"firstName,omitempty"`
	LastName       string               `json:"lastName,omitempty"`
	MiddleName     string               `json:"middleName,omitempty"`
	BirthDate      string               `json:"birthDate,omitempty"`
	Email          string               `json:"email,omitempty"`
	Document       *authmethod.Document `json:"document,omitempty"`
}

// FullName joins the available name parts.
func (p *MintingParams) FullName() string {
	payload := authmethod.IdentityPayload{FirstName: p.FirstName, LastName: p.LastName, MiddleName: p.MiddleName}
	return payload.FullName()
}

// ParamsCache stages minting parameters keyed by schema code and process id.
type ParamsCache struct {
	cache kvcache.Cache
	ttl   time.Duration
}

func NewParamsCache(cache kvcache.Cache, ttl time.Duration) *ParamsCache {
	return &ParamsCache{cache: cache, ttl: ttl}
}

func paramsKey(code domain.SchemaCode, processID string) string {
	return "auth-steps:cache-data:" + string(code) + ":" + processID
}

func (c *ParamsCache) Save(ctx context.Context, processID string, p *MintingParams) error {
	if err := kvcache.SetJSON(ctx, c.cache, paramsKey(p.Schema, processID), p, c.ttl); err != nil {
		return fmt.Errorf("stage minting params: %w", err)
	}
	return nil
}

// Load returns NotFound with RequestExpired once the staged data is gone.
func (c *ParamsCache) Load(ctx context.Context, code domain.SchemaCode, processID string) (*MintingParams, error) {
	p, err := kvcache.GetJSON[MintingParams](ctx, c.cache, paramsKey(code, processID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.NewProcess(dErrors.CodeNotFound, domain.ProcessCodeRequestExpired, "authorization data expired")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authorization data")
	}
	return p, nil
}
