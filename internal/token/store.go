package token

import (
	"context"
	"time"

	"idauth/pkg/domain"
)

// Store persists refresh tokens. Lookups return sentinel.ErrNotFound.
type Store interface {
	// Insert saves a new token.
	Insert(ctx context.Context, t *RefreshToken) error
	// ReplaceForDevice soft-deletes the device's live tokens of t's session
	// type and saves t, atomically.
	ReplaceForDevice(ctx context.Context, t *RefreshToken) error
	Find(ctx context.Context, value string) (*RefreshToken, error)
	// FindLatestForDevice returns the newest token of a session type for the device.
	FindLatestForDevice(ctx context.Context, mobileUID string, sessionType domain.SessionType) (*RefreshToken, error)
	// TouchActivity records client activity on a live token. It reports false
	// when the token is deleted, expired or compromised.
	TouchActivity(ctx context.Context, value, mobileUID string, a Activity) (bool, error)
	// SoftDelete marks the token deleted. It reports false when it already was.
	SoftDelete(ctx context.Context, value, mobileUID string) (bool, error)
	// Rotate retires the live token oldValue and saves next in one step.
	// Nothing is saved and false is returned when the old token is no longer
	// live. Device-bound session types supersede the device's other tokens.
	Rotate(ctx context.Context, oldValue string, next *RefreshToken) (bool, error)
	// MarkCompromised flags every live token of the device and returns how many changed.
	MarkCompromised(ctx context.Context, mobileUID string) (int, error)
	// ExpireBefore flags live tokens whose expiry is not after now.
	ExpireBefore(ctx context.Context, now time.Time) (int, error)
	// Purge deletes tokens that expired before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}

// Activity is the client state written by a heartbeat. Empty fields keep the
// stored value.
type Activity struct {
	At              time.Time
	PlatformType    domain.PlatformType
	PlatformVersion string
	AppVersion      string
}

// Override is a per-platform lifetime for clients at or above a version.
type Override struct {
	PlatformType  domain.PlatformType
	MinAppVersion domain.AppVersion
	SessionType   domain.SessionType
	Lifetime      time.Duration
}

// OverrideStore lists configured lifetime overrides.
type OverrideStore interface {
	ListOverrides(ctx context.Context, platform domain.PlatformType, sessionType domain.SessionType) ([]Override, error)
}
