package domain

import (
	"errors"
	"strings"
)

// PlatformType names the client platform reported by the device.
type PlatformType string

const (
	PlatformAndroid PlatformType = "android"
	PlatformHuawei  PlatformType = "huawei"
	PlatformIOS     PlatformType = "ios"
	PlatformBrowser PlatformType = "browser"
	PlatformUnknown PlatformType = ""
)

// ParsePlatformType normalizes a reported platform; unknown values map to PlatformUnknown.
func ParsePlatformType(s string) PlatformType {
	switch p := PlatformType(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformAndroid, PlatformHuawei, PlatformIOS, PlatformBrowser:
		return p
	}
	return PlatformUnknown
}

// ErrMissingMobileUID is returned when a request carries no device identifier.
var ErrMissingMobileUID = errors.New("mobile uid is required")

// Headers is the snapshot of device headers every action carries.
type Headers struct {
	MobileUID       string       `json:"mobileUid"`
	PlatformType    PlatformType `json:"platformType,omitempty"`
	PlatformVersion string       `json:"platformVersion,omitempty"`
	AppVersion      string       `json:"appVersion,omitempty"`
	TraceID         string       `json:"traceId,omitempty"`
}

// Validate checks the header invariants shared by all actions.
func (h Headers) Validate() error {
	if strings.TrimSpace(h.MobileUID) == "" {
		return ErrMissingMobileUID
	}
	return nil
}

// SessionType classifies a refresh token session.
type SessionType string

const (
	SessionTypeUser               SessionType = "user"
	SessionTypeCabinetUser        SessionType = "cabinet-user"
	SessionTypeEResident          SessionType = "eresident"
	SessionTypeEResidentApplicant SessionType = "eresident-applicant"
	SessionTypeTemporary          SessionType = "temporary"
)

// IsDeviceBound reports whether at most one live session of this type may exist
// per device.
func (s SessionType) IsDeviceBound() bool {
	switch s {
	case SessionTypeUser, SessionTypeEResident, SessionTypeEResidentApplicant:
		return true
	}
	return false
}

// User is the already-authenticated caller, when the action runs inside a session.
type User struct {
	Identifier  string      `json:"identifier"`
	SessionType SessionType `json:"sessionType"`
	FullName    string      `json:"fullName,omitempty"`
}
