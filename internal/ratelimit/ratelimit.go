// Package ratelimit throttles the provider-facing actions per device with a
// sliding window. Every verify or authorization-url call may fan out to an
// external identity provider, so a single device is capped well below what the
// providers themselves tolerate.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Class groups routes that share one budget.
type Class string

const (
	ClassVerify  Class = "verify"
	ClassAuthURL Class = "auth_url"
	ClassRefresh Class = "refresh"
)

// Limit is the number of requests allowed inside Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result describes the state of a bucket after a check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is set only when the request was refused.
	RetryAfter time.Duration
}

// Store counts requests per key.
type Store interface {
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// Key builds the bucket key for a subject and class. Subjects come from client
// headers, so the segment delimiter is escaped.
func Key(class Class, subject string) string {
	return "rl:" + string(class) + ":" + sanitize(subject)
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
