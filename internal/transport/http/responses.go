package httptransport

import (
	"time"

	"idauth/internal/authsteps"
	"idauth/internal/challenge"
	"idauth/internal/token"
)

// VerifyResponse names the outcome of a verify call.
type VerifyResponse struct {
	ProcessCode string `json:"processCode"`
}

// SessionResponse is returned when a session is minted or rotated.
type SessionResponse struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	// ExpirationTime is RefreshExpiresAt in epoch milliseconds.
	ExpirationTime int64  `json:"expirationTime"`
	SessionType    string `json:"sessionType"`
}

func toSessionResponse(s *token.Session) SessionResponse {
	return SessionResponse{
		AccessToken:      s.AccessToken,
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshToken:     s.RefreshToken.Value,
		RefreshExpiresAt: s.RefreshToken.ExpiresAt,
		ExpirationTime:   s.RefreshToken.ExpirationTime(),
		SessionType:      string(s.RefreshToken.SessionType),
	}
}

// CompleteResponse carries the completed process and, for schemas that mint
// one, the new session.
type CompleteResponse struct {
	ProcessID string           `json:"processId"`
	Code      string           `json:"code"`
	Status    string           `json:"status"`
	Session   *SessionResponse `json:"session,omitempty"`
}

func toCompleteResponse(p *authsteps.UserAuthSteps) CompleteResponse {
	return CompleteResponse{
		ProcessID: p.ProcessID,
		Code:      string(p.Code),
		Status:    string(p.Status),
	}
}

// ChallengeResponse exposes a challenge without its stored headers.
type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toChallengeResponse(c *challenge.Challenge) ChallengeResponse {
	return ChallengeResponse{
		Nonce:     c.Nonce,
		Kind:      string(c.Kind),
		Status:    string(c.Status),
		Error:     c.Error,
		CreatedAt: c.CreatedAt,
	}
}
