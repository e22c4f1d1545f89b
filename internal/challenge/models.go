package challenge

import (
	"encoding/json"
	"time"

	"idauth/pkg/domain"
)

// Status is the challenge lifecycle: created, then launched, then one of the
// terminal states.
type Status string

const (
	StatusCreated   Status = "created"
	StatusLaunched  Status = "launched"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Kind separates independent challenge families. Uniqueness per device is
// scoped by kind, so an integrity check never supersedes a QR confirmation.
type Kind string

const (
	KindAttestation      Kind = "attestation"
	KindAndroidIntegrity Kind = "android-integrity"
	KindIOSAppAttest     Kind = "ios-app-attest"
	KindEResidentQr      Kind = "eresident-qr"
)

// TimeoutError is recorded on launched challenges the sweeper expires.
const TimeoutError = "timeout"

// Challenge is a pending nonce waiting for an out-of-band verification result.
type Challenge struct {
	Kind           Kind                `json:"kind"`
	MobileUID      string              `json:"mobileUid"`
	UserIdentifier string              `json:"userIdentifier"`
	Nonce          string              `json:"nonce"`
	CorrelationID  string              `json:"correlationId,omitempty"`
	Platform       domain.PlatformType `json:"platform,omitempty"`
	Status         Status              `json:"status"`
	Headers        domain.Headers      `json:"headers"`
	ResultData     json.RawMessage     `json:"resultData,omitempty"`
	Error          string              `json:"error,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// Succeeded reports whether the challenge completed with a positive verdict.
func (c *Challenge) Succeeded() bool {
	return c.Status == StatusSucceeded
}

// LaunchRequest is the verification request published on the bus.
type LaunchRequest struct {
	CorrelationID  string          `json:"correlationId"`
	Nonce          string          `json:"nonce"`
	Kind           Kind            `json:"kind"`
	MobileUID      string          `json:"mobileUid"`
	UserIdentifier string          `json:"userIdentifier"`
	Platform       string          `json:"platform,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}

// ResultMessage is the verification outcome delivered back on the bus.
type ResultMessage struct {
	CorrelationID string          `json:"correlationId"`
	Nonce         string          `json:"nonce"`
	Result        json.RawMessage `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
}
