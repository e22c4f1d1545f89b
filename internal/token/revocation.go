package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "idauth_refresh_token_revoked_check_duration_ms",
	Help:    "Latency of rotated refresh token checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// revokedTokenKeyPrefix namespaces rotated refresh token values.
const revokedTokenKeyPrefix = "rtl:value:"

// RevocationList holds recently rotated refresh token values for a short window.
type RevocationList interface {
	// Add records value. added is false when it was already present, which
	// means another rotation of the same value won.
	Add(ctx context.Context, value string, ttl time.Duration) (added bool, err error)
	IsRevoked(ctx context.Context, value string) (bool, error)
}

// RedisRevocationList shares rotation state across instances.
type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

// Add uses SET NX so concurrent rotations of one value have a single winner.
func (l *RedisRevocationList) Add(ctx context.Context, value string, ttl time.Duration) (bool, error) {
	if value == "" {
		return false, nil
	}
	return l.client.SetNX(ctx, revokedTokenKeyPrefix+value, "1", ttl).Result()
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, value string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if value == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedTokenKeyPrefix+value).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InMemoryRevocationList is a single-process RevocationList.
type InMemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewInMemoryRevocationList() *InMemoryRevocationList {
	return &InMemoryRevocationList{entries: make(map[string]time.Time), now: time.Now}
}

func (l *InMemoryRevocationList) Add(_ context.Context, value string, ttl time.Duration) (bool, error) {
	if value == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.entries[value]; ok && now.Before(exp) {
		return false, nil
	}
	l.entries[value] = now.Add(ttl)
	return true, nil
}

func (l *InMemoryRevocationList) IsRevoked(_ context.Context, value string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.entries[value]
	if !ok {
		return false, nil
	}
	if !l.now().Before(exp) {
		delete(l.entries, value)
		return false, nil
	}
	return true, nil
}
