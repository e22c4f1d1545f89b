package token

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"idauth/pkg/domain"
	"idauth/pkg/platform/circuit"
)

// ExpirationResolver picks the lifetime for a new refresh token. Platform and
// app version overrides win over the session type default; among matching
// overrides the one with the highest minimum version applies.
type ExpirationResolver struct {
	overrides OverrideStore
	defaults  map[domain.SessionType]time.Duration
	cache     *expirable.LRU[string, time.Duration]
	group     singleflight.Group
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

type ResolverOption func(*ExpirationResolver)

func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *ExpirationResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithResolverBreaker(b *circuit.Breaker) ResolverOption {
	return func(r *ExpirationResolver) {
		if b != nil {
			r.breaker = b
		}
	}
}

// NewExpirationResolver caches resolved overrides in a bounded LRU whose
// entries expire after cacheTTL.
func NewExpirationResolver(overrides OverrideStore, defaults map[domain.SessionType]time.Duration, cacheSize int, cacheTTL time.Duration, opts ...ResolverOption) *ExpirationResolver {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	r := &ExpirationResolver{
		overrides: overrides,
		defaults:  defaults,
		cache:     expirable.NewLRU[string, time.Duration](cacheSize, nil, cacheTTL),
		breaker:   circuit.New("token-expiration-overrides"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns the configured lifetime for a session type.
func (r *ExpirationResolver) Default(sessionType domain.SessionType) time.Duration {
	return r.defaults[sessionType]
}

// Resolve returns the lifetime for sessionType on the client in headers.
// Override lookup failures fall back to the session default.
func (r *ExpirationResolver) Resolve(ctx context.Context, sessionType domain.SessionType, headers domain.Headers) time.Duration {
	def := r.Default(sessionType)
	if r.overrides == nil || headers.PlatformType == "" {
		return def
	}
	version, err := domain.ParseAppVersion(headers.AppVersion)
	if err != nil {
		return def
	}
	key := cacheKey(headers.PlatformType, version, sessionType)
	if d, ok := r.cache.Get(key); ok {
		return pick(d, def)
	}
	if r.breaker.IsOpen() {
		return def
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		list, err := r.overrides.ListOverrides(ctx, headers.PlatformType, sessionType)
		if err != nil {
			return time.Duration(0), err
		}
		d := matchOverride(list, version)
		r.cache.Add(key, d)
		return d, nil
	})
	if err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "expiration override lookups disabled", "breaker", r.breaker.Name())
		}
		r.logger.ErrorContext(ctx, "failed to load expiration overrides",
			"platform", headers.PlatformType,
			"session_type", sessionType,
			"error", err,
		)
		return def
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "expiration override lookups restored", "breaker", r.breaker.Name())
	}
	return pick(v.(time.Duration), def)
}

// Invalidate drops cached resolutions after the override table changes.
func (r *ExpirationResolver) Invalidate() {
	r.cache.Purge()
}

func matchOverride(list []Override, version domain.AppVersion) time.Duration {
	var (
		best  *Override
		found time.Duration
	)
	for i := range list {
		ov := &list[i]
		if ov.Lifetime <= 0 || !version.IsAtLeast(ov.MinAppVersion) {
			continue
		}
		if best == nil || ov.MinAppVersion.IsAtLeast(best.MinAppVersion) {
			best = ov
			found = ov.Lifetime
		}
	}
	return found
}

func pick(override, def time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return def
}

func cacheKey(platform domain.PlatformType, version domain.AppVersion, sessionType domain.SessionType) string {
	return strings.Join([]string{string(platform), version.String(), string(sessionType)}, "|")
}
