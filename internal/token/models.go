package token

import (
	"time"

	"idauth/pkg/domain"
)

// EntryPoint records how a session was authenticated.
type EntryPoint struct {
	Schema domain.SchemaCode `json:"schema"`
	Method domain.Method     `json:"method,omitempty"`
	At     time.Time         `json:"at"`
}

// RefreshToken is a device session. ExpiresAt is canonical; the legacy epoch
// millisecond field is derived from it where it is stored.
type RefreshToken struct {
	Value                 string              `json:"value"`
	MobileUID             string              `json:"mobileUid"`
	SessionType           domain.SessionType  `json:"sessionType"`
	UserIdentifier        string              `json:"userIdentifier,omitempty"`
	AuthEntryPoint        EntryPoint          `json:"authEntryPoint"`
	AuthEntryPointHistory []EntryPoint        `json:"authEntryPointHistory"`
	ExpiresAt             time.Time           `json:"expirationDate"`
	IsDeleted             bool                `json:"isDeleted"`
	Expired               bool                `json:"expired"`
	IsCompromised         bool                `json:"isCompromised"`
	PlatformType          domain.PlatformType `json:"platformType,omitempty"`
	PlatformVersion       string              `json:"platformVersion,omitempty"`
	AppVersion            string              `json:"appVersion,omitempty"`
	LastActivityDate      time.Time           `json:"lastActivityDate"`
	CreatedAt             time.Time           `json:"createdAt"`
}

// ExpirationTime is the expiry in epoch milliseconds.
func (t *RefreshToken) ExpirationTime() int64 {
	return t.ExpiresAt.UnixMilli()
}

// IsActive reports whether the token may still be used at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsDeleted && !t.Expired && !t.IsCompromised && now.Before(t.ExpiresAt)
}

// appendEntryPoint keeps the limit most recent entries.
func appendEntryPoint(history []EntryPoint, ep EntryPoint, limit int) []EntryPoint {
	out := append(append([]EntryPoint{}, history...), ep)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// IssueParams describes the session to mint.
type IssueParams struct {
	SessionType    domain.SessionType
	Headers        domain.Headers
	UserIdentifier string
	EntryPoint     EntryPoint
	// Lifetime overrides every configured lifetime when positive.
	Lifetime time.Duration
}

// ValidateOptions tunes Validate.
type ValidateOptions struct {
	// UseProcessCode returns failures as a result instead of an error.
	UseProcessCode bool
	// UserIdentifier, when set, must own the token.
	UserIdentifier string
}

// ValidationResult is returned by Validate. Valid is false only in process
// code mode, where ProcessCode names the reason.
type ValidationResult struct {
	Valid       bool
	ProcessCode domain.ProcessCode
	Token       *RefreshToken
}

// RevokeParams identifies the session to end.
type RevokeParams struct {
	Value          string
	MobileUID      string
	UserIdentifier string
	SessionType    domain.SessionType
}

// Session is a refresh token plus the access token minted with it.
type Session struct {
	RefreshToken    *RefreshToken
	AccessToken     string
	AccessExpiresAt time.Time
}
