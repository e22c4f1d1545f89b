// Package identity derives opaque, deterministic user identifiers from raw
// identity attributes (tax id, document, email).
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher creates identifiers with a keyed hash so raw values cannot be
// recovered from stored records.
type Hasher struct {
	pepper []byte
}

func NewHasher(pepper string) *Hasher {
	return &Hasher{pepper: []byte(pepper)}
}

// CreateIdentifier returns the identifier for a raw value. Surrounding
// whitespace is ignored.
func (h *Hasher) CreateIdentifier(raw string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(mac.Sum(nil))
}

// FromTaxID identifies a citizen.
func (h *Hasher) FromTaxID(taxID string) string {
	return h.CreateIdentifier("itn:" + taxID)
}

// FromDocument identifies an e-resident by issuing country and document number.
func (h *Hasher) FromDocument(country, number string) string {
	return h.CreateIdentifier("doc:" + strings.ToUpper(country) + ":" + strings.ToUpper(number))
}

// FromEmail identifies an e-resident applicant. Emails are case-insensitive.
func (h *Hasher) FromEmail(email string) string {
	return h.CreateIdentifier("email:" + strings.ToLower(strings.TrimSpace(email)))
}
