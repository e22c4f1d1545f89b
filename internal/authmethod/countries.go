package authmethod

import (
	"fmt"
	"strings"

	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

// CountryAllowList restricts which document issuing countries are accepted.
// Codes are ISO 3166-1 alpha-3 as printed in machine readable zones.
type CountryAllowList struct {
	allowed map[string]struct{}
}

func NewCountryAllowList(codes []string) *CountryAllowList {
	l := &CountryAllowList{allowed: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			l.allowed[c] = struct{}{}
		}
	}
	return l
}

// Check fails with UnsupportedCountry unless country is allowed.
func (l *CountryAllowList) Check(country string) error {
	if _, ok := l.allowed[strings.ToUpper(country)]; !ok {
		return dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeUnsupportedCountry,
			fmt.Sprintf("documents issued by %q are not supported", country))
	}
	return nil
}
