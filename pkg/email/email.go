// Package email normalizes applicant addresses and derives a display name
// from them when no registry data exists yet.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

// Normalize parses raw as a single RFC 5322 address and returns the bare,
// lowercased address.
func Normalize(raw string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Address), nil
}

// NameParts guesses first and last name from the local part, split on the usual
// separators. The last name is empty when only one part exists.
func NameParts(addr string) (first, last string) {
	local, _, _ := strings.Cut(addr, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || unicode.IsDigit(r)
	})
	if len(parts) == 0 {
		return "", ""
	}
	first = capitalize(parts[0])
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
