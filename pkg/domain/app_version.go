package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// AppVersion is a dotted numeric client version ("4.12.1").
// Construct via ParseAppVersion at trust boundaries.
type AppVersion string

// ParseAppVersion validates a dotted numeric version.
func ParseAppVersion(s string) (AppVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty app version")
	}
	for _, part := range strings.Split(s, ".") {
		if _, err := strconv.Atoi(part); err != nil {
			return "", fmt.Errorf("invalid app version %q", s)
		}
	}
	return AppVersion(s), nil
}

func (v AppVersion) String() string {
	return string(v)
}

// IsAtLeast reports whether v >= other, comparing segment by segment.
// Missing segments count as zero, so "4.1" equals "4.1.0".
func (v AppVersion) IsAtLeast(other AppVersion) bool {
	a, b := v.segments(), other.segments()
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return x > y
		}
	}
	return true
}

func (v AppVersion) segments() []int {
	if v == "" {
		return nil
	}
	parts := strings.Split(string(v), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, _ := strconv.Atoi(p)
		out[i] = n
	}
	return out
}
