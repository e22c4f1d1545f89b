package authmethod

import (
	"time"

	"idauth/pkg/domain"
)

// RequestOptions carries the method-specific inputs of an authorization URL request.
type RequestOptions struct {
	ProcessID string `json:"processId"`
	// Email addresses an OTP for the email method.
	Email string `json:"email,omitempty"`
	// QrPayload is the scanned e-resident confirmation code.
	QrPayload string `json:"qrPayload,omitempty"`
}

// AuthorizationURL is what a provider hands back to the client to start its flow.
// Redirect flows fill URL; device-local flows (NFC, MRZ, OTP) only need Token.
type AuthorizationURL struct {
	URL       string    `json:"url,omitempty"`
	Token     string    `json:"token,omitempty"`
	RequestID string    `json:"requestId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyParams are the client-supplied inputs of a verify call.
type VerifyParams struct {
	Headers domain.Headers `json:"-"`
	// Code is a bank authorization code or an OTP.
	Code       string   `json:"code,omitempty"`
	Signature  string   `json:"signature,omitempty"`
	MRZ        []string `json:"mrz,omitempty"`
	PhotoToken string   `json:"photoToken,omitempty"`
}

// Document describes an identity document read by a provider.
type Document struct {
	Type       string `json:"type"`
	Number     string `json:"number"`
	Country    string `json:"country"`
	ExpiryDate string `json:"expiryDate,omitempty"`
	HasPhoto   bool   `json:"hasPhoto"`
}

// IdentityPayload is the normalized identity a provider resolved.
type IdentityPayload struct {
	Method     domain.Method     `json:"method"`
	TaxID      string            `json:"taxId,omitempty"`
	FirstName  string            `json:"firstName,omitempty"`
	LastName   string            `json:"lastName,omitempty"`
	MiddleName string            `json:"middleName,omitempty"`
	BirthDate  string            `json:"birthDate,omitempty"`
	Email      string            `json:"email,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	Document   *Document         `json:"document,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// FullName joins the available name parts.
func (p *IdentityPayload) FullName() string {
	name := p.LastName
	for _, part := range []string{p.FirstName, p.MiddleName} {
		if part == "" {
			continue
		}
		if name != "" {
			name += " "
		}
		name += part
	}
	return name
}
