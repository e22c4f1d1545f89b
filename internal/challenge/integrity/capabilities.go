package integrity

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"

	"idauth/internal/challenge"
)

var (
	errEmptyStatement = errors.New("statement is required")
	errNonceMismatch  = errors.New("nonce mismatch")
)

// AttestationResult is the verdict of the generic attestation service.
type AttestationResult struct {
	Valid  bool   `json:"valid"`
	Nonce  string `json:"nonce"`
	Reason string `json:"reason,omitempty"`
}

// Attestation is the platform-neutral key attestation check.
type Attestation struct {
	Topic string
}

func (Attestation) Kind() challenge.Kind { return challenge.KindAttestation }

func (a Attestation) RequestTopic() string { return a.Topic }

func (Attestation) LaunchPayload(ch *challenge.Challenge, statement string) (any, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, errEmptyStatement
	}
	return map[string]string{"signedStatement": statement, "nonce": ch.Nonce}, nil
}

func (Attestation) Evaluate(ch *challenge.Challenge, r AttestationResult) error {
	if r.Nonce != ch.Nonce {
		return errNonceMismatch
	}
	if !r.Valid {
		if r.Reason == "" {
			return errors.New("attestation rejected")
		}
		return errors.New(r.Reason)
	}
	return nil
}

// AndroidVerdict is the decoded device integrity verdict.
type AndroidVerdict struct {
	RequestNonce             string   `json:"requestNonce"`
	PackageName              string   `json:"packageName"`
	AppRecognitionVerdict    string   `json:"appRecognitionVerdict"`
	DeviceRecognitionVerdict []string `json:"deviceRecognitionVerdict"`
}

const (
	appRecognized        = "PLAY_RECOGNIZED"
	meetsDeviceIntegrity = "MEETS_DEVICE_INTEGRITY"
	meetsStrongIntegrity = "MEETS_STRONG_INTEGRITY"
)

// AndroidIntegrity checks an integrity token issued to the app on Android.
type AndroidIntegrity struct {
	Topic       string
	PackageName string
}

func (AndroidIntegrity) Kind() challenge.Kind { return challenge.KindAndroidIntegrity }

func (a AndroidIntegrity) RequestTopic() string { return a.Topic }

func (a AndroidIntegrity) LaunchPayload(_ *challenge.Challenge, statement string) (any, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, errEmptyStatement
	}
	return map[string]string{"integrityToken": statement, "packageName": a.PackageName}, nil
}

func (a AndroidIntegrity) Evaluate(ch *challenge.Challenge, v AndroidVerdict) error {
	if v.RequestNonce != ch.Nonce {
		return errNonceMismatch
	}
	if v.PackageName != a.PackageName {
		return fmt.Errorf("unexpected package %q", v.PackageName)
	}
	if v.AppRecognitionVerdict != appRecognized {
		return fmt.Errorf("app not recognized: %s", v.AppRecognitionVerdict)
	}
	if !slices.Contains(v.DeviceRecognitionVerdict, meetsDeviceIntegrity) &&
		!slices.Contains(v.DeviceRecognitionVerdict, meetsStrongIntegrity) {
		return errors.New("device integrity not met")
	}
	return nil
}

// AppAttestResult is the outcome of verifying an iOS app attestation object.
type AppAttestResult struct {
	Valid       bool   `json:"valid"`
	Nonce       string `json:"nonce"`
	AppID       string `json:"appId"`
	KeyID       string `json:"keyId"`
	Environment string `json:"environment"`
}

// IOSAppAttest checks an attestation object produced by the iOS key service.
type IOSAppAttest struct {
	Topic            string
	AppID            string
	AllowDevelopment bool
}

func (IOSAppAttest) Kind() challenge.Kind { return challenge.KindIOSAppAttest }

func (a IOSAppAttest) RequestTopic() string { return a.Topic }

// LaunchPayload expects "<keyId>.<base64 attestation object>".
func (IOSAppAttest) LaunchPayload(_ *challenge.Challenge, statement string) (any, error) {
	keyID, object, ok := strings.Cut(statement, ".")
	if !ok || keyID == "" || object == "" {
		return nil, errors.New("statement must be keyId.attestation")
	}
	if _, err := base64.StdEncoding.DecodeString(object); err != nil {
		return nil, fmt.Errorf("attestation object: %w", err)
	}
	return map[string]string{"keyId": keyID, "attestation": object}, nil
}

func (a IOSAppAttest) Evaluate(ch *challenge.Challenge, r AppAttestResult) error {
	if r.Nonce != ch.Nonce {
		return errNonceMismatch
	}
	if !r.Valid {
		return errors.New("attestation rejected")
	}
	if r.AppID != a.AppID {
		return fmt.Errorf("unexpected app id %q", r.AppID)
	}
	if r.Environment != "production" && !a.AllowDevelopment {
		return errors.New("development attestation not accepted")
	}
	return nil
}
