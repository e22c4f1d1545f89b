// Package authmethod defines the contract every verification method adapter
// implements, the registry that dispatches to them, and the device-keyed
// request cache they share.
package authmethod

import (
	"context"
	"fmt"
	"sort"

	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Provider

// Provider adapts one verification method.
type Provider interface {
	Method() domain.Method
	// RequestAuthorizationURL starts the external flow for a device.
	RequestAuthorizationURL(ctx context.Context, ops RequestOptions, headers domain.Headers, schemaCode domain.SchemaCode) (*AuthorizationURL, error)
	// Verify resolves the identity produced by the flow identified by requestID.
	Verify(ctx context.Context, requestID string, params VerifyParams) (*IdentityPayload, error)
}

// Registry maps methods to providers.
type Registry struct {
	providers map[domain.Method]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.Method]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Method()] = p
	}
	return r
}

// Get returns the provider for m. A catalog method without a provider is a
// wiring bug, not a client error.
func (r *Registry) Get(m domain.Method) (Provider, error) {
	p, ok := r.providers[m]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnhandledCase, fmt.Sprintf("no provider for method %s", m))
	}
	return p, nil
}

// Methods lists registered methods in a stable order.
func (r *Registry) Methods() []domain.Method {
	out := make([]domain.Method, 0, len(r.providers))
	for m := range r.providers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
