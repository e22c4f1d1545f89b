package mrz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Data is the decoded machine readable zone of a travel document.
type Data struct {
	DocumentType   string
	IssuingCountry string
	DocumentNumber string
	Nationality    string
	Surname        string
	GivenNames     string
	BirthDate      string // YYMMDD
	Sex            string
	ExpiryDate     string // YYMMDD
}

var errFormat = errors.New("unrecognized machine readable zone")

// Parse decodes a TD3 (passport, 2x44) or TD1 (ID card, 3x30) zone and checks
// every check digit.
func Parse(lines []string) (*Data, error) {
	clean := make([]string, 0, len(lines))
	for _, l := range lines {
		clean = append(clean, strings.ToUpper(strings.TrimSpace(l)))
	}
	switch {
	case len(clean) == 2 && len(clean[0]) == 44 && len(clean[1]) == 44:
		return parseTD3(clean[0], clean[1])
	case len(clean) == 3 && len(clean[0]) == 30 && len(clean[1]) == 30 && len(clean[2]) == 30:
		return parseTD1(clean[0], clean[1], clean[2])
	}
	return nil, errFormat
}

func parseTD3(l1, l2 string) (*Data, error) {
	checks := []struct {
		field string
		value string
		digit byte
	}{
		{"document number", l2[0:9], l2[9]},
		{"birth date", l2[13:19], l2[19]},
		{"expiry date", l2[21:27], l2[27]},
		{"composite", l2[0:10] + l2[13:20] + l2[21:43], l2[43]},
	}
	for _, c := range checks {
		if err := verifyCheckDigit(c.field, c.value, c.digit); err != nil {
			return nil, err
		}
	}
	surname, given := splitNames(l1[5:44])
	return &Data{
		DocumentType:   strings.TrimRight(l1[0:2], "<"),
		IssuingCountry: strings.TrimRight(l1[2:5], "<"),
		DocumentNumber: strings.TrimRight(l2[0:9], "<"),
		Nationality:    strings.TrimRight(l2[10:13], "<"),
		Surname:        surname,
		GivenNames:     given,
		BirthDate:      l2[13:19],
		Sex:            strings.TrimRight(l2[20:21], "<"),
		ExpiryDate:     l2[21:27],
	}, nil
}

func parseTD1(l1, l2, l3 string) (*Data, error) {
	checks := []struct {
		field string
		value string
		digit byte
	}{
		{"document number", l1[5:14], l1[14]},
		{"birth date", l2[0:6], l2[6]},
		{"expiry date", l2[8:14], l2[14]},
		{"composite", l1[5:30] + l2[0:7] + l2[8:15] + l2[18:29], l2[29]},
	}
	for _, c := range checks {
		if err := verifyCheckDigit(c.field, c.value, c.digit); err != nil {
			return nil, err
		}
	}
	surname, given := splitNames(l3)
	return &Data{
		DocumentType:   strings.TrimRight(l1[0:2], "<"),
		IssuingCountry: strings.TrimRight(l1[2:5], "<"),
		DocumentNumber: strings.TrimRight(l1[5:14], "<"),
		Nationality:    strings.TrimRight(l2[15:18], "<"),
		Surname:        surname,
		GivenNames:     given,
		BirthDate:      l2[0:6],
		Sex:            strings.TrimRight(l2[7:8], "<"),
		ExpiryDate:     l2[8:14],
	}, nil
}

func splitNames(field string) (string, string) {
	surname, given, _ := strings.Cut(field, "<<")
	clean := func(s string) string {
		return strings.TrimSpace(strings.ReplaceAll(strings.TrimRight(s, "<"), "<", " "))
	}
	return clean(surname), clean(given)
}

func verifyCheckDigit(field, value string, digit byte) error {
	want, err := CheckDigit(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if digit == '<' {
		digit = '0'
	}
	if digit != want {
		return fmt.Errorf("%s: check digit mismatch", field)
	}
	return nil
}

// CheckDigit computes the ICAO 9303 check digit (weights 7, 3, 1).
func CheckDigit(value string) (byte, error) {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(value); i++ {
		var v int
		switch c := value[i]; {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'A' && c <= 'Z':
			v = int(c-'A') + 10
		case c == '<':
			v = 0
		default:
			return 0, fmt.Errorf("invalid character %q", c)
		}
		sum += v * weights[i%3]
	}
	return byte('0' + sum%10), nil
}

// Expired reports whether the YYMMDD expiry lies before now. Expiry years are
// always read as 20YY.
func (d *Data) Expired(now time.Time) bool {
	exp, err := time.Parse("060102", d.ExpiryDate)
	if err != nil {
		return true
	}
	if exp.Year() < 2000 {
		exp = exp.AddDate(100, 0, 0)
	}
	return exp.AddDate(0, 0, 1).Before(now)
}
