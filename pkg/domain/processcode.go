package domain

import "fmt"

// ProcessCode is a structured, client-facing outcome code. Clients localize and
// act on it; it is distinct from internal error types.
type ProcessCode int

const (
	ProcessCodeNone ProcessCode = 0

	ProcessCodeAuthSuccess                   ProcessCode = 10101
	ProcessCodePhotoIDRequired               ProcessCode = 10102
	ProcessCodeNfcRequired                   ProcessCode = 10103
	ProcessCodeCabinetAuthSuccess            ProcessCode = 10104
	ProcessCodeProlongSuccess                ProcessCode = 10105
	ProcessCodeSignatureKeyCreationAllowed   ProcessCode = 10106
	ProcessCodeReauthSuccess                 ProcessCode = 10107
	ProcessCodeEResidentAuthSuccess          ProcessCode = 10108
	ProcessCodeEResidentApplicantAuthSuccess ProcessCode = 10109
	ProcessCodeStepAccepted                  ProcessCode = 10110
	ProcessCodeEResidentPhotoIDRequired      ProcessCode = 10111

	ProcessCodeAttemptsExceeded          ProcessCode = 10201
	ProcessCodeVerifyAttemptsExceeded    ProcessCode = 10202
	ProcessCodeStepExpired               ProcessCode = 10203
	ProcessCodeRequestExpired            ProcessCode = 10204
	ProcessCodeDocumentMismatch          ProcessCode = 10205
	ProcessCodeUnsupportedCountry        ProcessCode = 10206
	ProcessCodeUserIdentifierMismatch    ProcessCode = 10207
	ProcessCodeSchemaNotAdmitted         ProcessCode = 10208
	ProcessCodeMethodNotAllowed          ProcessCode = 10209
	ProcessCodeStepsNotCompleted         ProcessCode = 10210
	ProcessCodeBankAuthFailed            ProcessCode = 10211
	ProcessCodeNfcFailed                 ProcessCode = 10212
	ProcessCodePhotoIDFailed             ProcessCode = 10213
	ProcessCodeSignatureInvalid          ProcessCode = 10214
	ProcessCodeOtpInvalid                ProcessCode = 10215
	ProcessCodeDocumentNotVerified       ProcessCode = 10216
	ProcessCodeNoOpenStep                ProcessCode = 10217
	ProcessCodeProcessRevoked            ProcessCode = 10218
	ProcessCodeStepsAlreadyCompleted     ProcessCode = 10219
	ProcessCodeChallengeAlreadyRequested ProcessCode = 10220

	ProcessCodeTokenNotFound       ProcessCode = 10301
	ProcessCodeTokenExpired        ProcessCode = 10302
	ProcessCodeTokenCompromised    ProcessCode = 10303
	ProcessCodeTokenDeviceMismatch ProcessCode = 10304
	ProcessCodeTokenUserMismatch   ProcessCode = 10305
	ProcessCodeTokenRevoked        ProcessCode = 10306
)

var processCodeNames = map[ProcessCode]string{
	ProcessCodeAuthSuccess:                   "auth-success",
	ProcessCodePhotoIDRequired:               "photo-id-required",
	ProcessCodeNfcRequired:                   "nfc-required",
	ProcessCodeCabinetAuthSuccess:            "cabinet-auth-success",
	ProcessCodeProlongSuccess:                "prolong-success",
	ProcessCodeSignatureKeyCreationAllowed:   "signature-key-creation-allowed",
	ProcessCodeReauthSuccess:                 "reauth-success",
	ProcessCodeEResidentAuthSuccess:          "eresident-auth-success",
	ProcessCodeEResidentApplicantAuthSuccess: "eresident-applicant-auth-success",
	ProcessCodeStepAccepted:                  "step-accepted",
	ProcessCodeEResidentPhotoIDRequired:      "eresident-photo-id-required",
	ProcessCodeAttemptsExceeded:              "attempts-exceeded",
	ProcessCodeVerifyAttemptsExceeded:        "verify-attempts-exceeded",
	ProcessCodeStepExpired:                   "step-expired",
	ProcessCodeRequestExpired:                "request-expired",
	ProcessCodeDocumentMismatch:              "document-mismatch",
	ProcessCodeUnsupportedCountry:            "unsupported-country",
	ProcessCodeUserIdentifierMismatch:        "user-identifier-mismatch",
	ProcessCodeSchemaNotAdmitted:             "schema-not-admitted",
	ProcessCodeMethodNotAllowed:              "method-not-allowed",
	ProcessCodeStepsNotCompleted:             "steps-not-completed",
	ProcessCodeBankAuthFailed:                "bank-auth-failed",
	ProcessCodeNfcFailed:                     "nfc-failed",
	ProcessCodePhotoIDFailed:                 "photo-id-failed",
	ProcessCodeSignatureInvalid:              "signature-invalid",
	ProcessCodeOtpInvalid:                    "otp-invalid",
	ProcessCodeDocumentNotVerified:           "document-not-verified",
	ProcessCodeNoOpenStep:                    "no-open-step",
	ProcessCodeProcessRevoked:                "process-revoked",
	ProcessCodeStepsAlreadyCompleted:         "steps-already-completed",
	ProcessCodeChallengeAlreadyRequested:     "challenge-already-requested",
	ProcessCodeTokenNotFound:                 "token-not-found",
	ProcessCodeTokenExpired:                  "token-expired",
	ProcessCodeTokenCompromised:              "token-compromised",
	ProcessCodeTokenDeviceMismatch:           "token-device-mismatch",
	ProcessCodeTokenUserMismatch:             "token-user-mismatch",
	ProcessCodeTokenRevoked:                  "token-revoked",
}

var processCodesByName = func() map[string]ProcessCode {
	out := make(map[string]ProcessCode, len(processCodeNames))
	for code, name := range processCodeNames {
		out[name] = code
	}
	return out
}()

// ParseProcessCode resolves a process code by its symbolic name.
func ParseProcessCode(name string) (ProcessCode, error) {
	code, ok := processCodesByName[name]
	if !ok {
		return ProcessCodeNone, fmt.Errorf("unknown process code: %q", name)
	}
	return code, nil
}

func (c ProcessCode) String() string {
	if name, ok := processCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("process-code-%d", int(c))
}
