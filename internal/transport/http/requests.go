package httptransport

import (
	"strings"

	"idauth/internal/authmethod"
	"idauth/internal/authsteps"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	pkgstrings "idauth/pkg/platform/strings"
)

// AuthorizationURLRequest starts a method's flow.
type AuthorizationURLRequest struct {
	Email     string `json:"email,omitempty"`
	QrPayload string `json:"qrPayload,omitempty"`
}

func (r AuthorizationURLRequest) options() authmethod.RequestOptions {
	return authmethod.RequestOptions{Email: strings.TrimSpace(r.Email), QrPayload: r.QrPayload}
}

// VerifyRequest carries the provider result the client collected.
type VerifyRequest struct {
	RequestID  string   `json:"requestId"`
	Code       string   `json:"code,omitempty"`
	Signature  string   `json:"signature,omitempty"`
	MRZ        []string `json:"mrz,omitempty"`
	PhotoToken string   `json:"photoToken,omitempty"`
}

func (r VerifyRequest) Validate() error {
	if strings.TrimSpace(r.RequestID) == "" {
		return dErrors.New(dErrors.CodeValidation, "requestId is required")
	}
	return nil
}

func (r VerifyRequest) params(headers domain.Headers) authmethod.VerifyParams {
	return authmethod.VerifyParams{
		Headers:    headers,
		Code:       r.Code,
		Signature:  r.Signature,
		MRZ:        r.MRZ,
		PhotoToken: r.PhotoToken,
	}
}

// CompleteRequest finalizes a process. OneOfCodes accepts any of several schemas.
type CompleteRequest struct {
	Code       string   `json:"code,omitempty"`
	OneOfCodes []string `json:"oneOfCodes,omitempty"`
}

func (r CompleteRequest) toModel(processID string, headers domain.Headers, user *domain.User) (authsteps.CompleteRequest, error) {
	out := authsteps.CompleteRequest{ProcessID: processID, MobileUID: headers.MobileUID}
	if user != nil {
		out.UserIdentifier = user.Identifier
	}
	if r.Code != "" {
		code, err := domain.ParseSchemaCode(r.Code)
		if err != nil {
			return out, dErrors.Wrap(err, dErrors.CodeValidation, "invalid code")
		}
		out.Code = code
	}
	for _, raw := range pkgstrings.DedupeAndTrim(r.OneOfCodes) {
		code, err := domain.ParseSchemaCode(raw)
		if err != nil {
			return out, dErrors.Wrap(err, dErrors.CodeValidation, "invalid oneOfCodes")
		}
		out.OneOfCodes = append(out.OneOfCodes, code)
	}
	return out, nil
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r RefreshRequest) Validate() error {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return dErrors.New(dErrors.CodeValidation, "refreshToken is required")
	}
	return nil
}

// LogoutRequest ends a session. Without a token the device's latest session
// of the caller's type is revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LaunchRequest submits the device attestation for a pending challenge.
type LaunchRequest struct {
	Nonce     string `json:"nonce"`
	Statement string `json:"statement"`
}

func (r LaunchRequest) Validate() error {
	if strings.TrimSpace(r.Nonce) == "" {
		return dErrors.New(dErrors.CodeValidation, "nonce is required")
	}
	if r.Statement == "" {
		return dErrors.New(dErrors.CodeValidation, "statement is required")
	}
	return nil
}
