package domain

import (
	"fmt"
	"sort"
)

// SchemaCode identifies an authentication schema.
// Invariant: the value must be one of the supported schema codes.
//
// Construct via ParseSchemaCode at trust boundaries; direct casting bypasses
// validation.
type SchemaCode string

const (
	SchemaAuthorization          SchemaCode = "authorization"
	SchemaCabinetAuthorization   SchemaCode = "cabinet-authorization"
	SchemaProlong                SchemaCode = "prolong"
	SchemaSignatureKeyCreation   SchemaCode = "signature-key-creation"
	SchemaReauthentication       SchemaCode = "reauthentication"
	SchemaResetPin               SchemaCode = "reset-pin"
	SchemaDocumentIssue          SchemaCode = "document-issue"
	SchemaProfileUpdate          SchemaCode = "profile-update"
	SchemaDeviceRebind           SchemaCode = "device-rebind"
	SchemaMilitaryBondsSigning   SchemaCode = "military-bonds-signing"
	SchemaPaymentConfirmation    SchemaCode = "payment-confirmation"
	SchemaEResidentFirstAuth     SchemaCode = "eresident-first-auth"
	SchemaEResidentAuth          SchemaCode = "eresident-auth"
	SchemaEResidentApplicantAuth SchemaCode = "eresident-applicant-auth"
	SchemaEResidentKeyCreation   SchemaCode = "eresident-key-creation"
	SchemaEResidentProlong       SchemaCode = "eresident-prolong"
	SchemaEResidentResetPin      SchemaCode = "eresident-reset-pin"
)

var validSchemaCodes = map[SchemaCode]bool{
	SchemaAuthorization:          true,
	SchemaCabinetAuthorization:   true,
	SchemaProlong:                true,
	SchemaSignatureKeyCreation:   true,
	SchemaReauthentication:       true,
	SchemaResetPin:               true,
	SchemaDocumentIssue:          true,
	SchemaProfileUpdate:          true,
	SchemaDeviceRebind:           true,
	SchemaMilitaryBondsSigning:   true,
	SchemaPaymentConfirmation:    true,
	SchemaEResidentFirstAuth:     true,
	SchemaEResidentAuth:          true,
	SchemaEResidentApplicantAuth: true,
	SchemaEResidentKeyCreation:   true,
	SchemaEResidentProlong:       true,
	SchemaEResidentResetPin:      true,
}

// ParseSchemaCode validates external input against the closed set of schemas.
func ParseSchemaCode(s string) (SchemaCode, error) {
	code := SchemaCode(s)
	if !validSchemaCodes[code] {
		return "", fmt.Errorf("unknown schema code: %q", s)
	}
	return code, nil
}

// AllSchemaCodes lists the closed set in a stable order.
func AllSchemaCodes() []SchemaCode {
	out := make([]SchemaCode, 0, len(validSchemaCodes))
	for code := range validSchemaCodes {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c SchemaCode) String() string {
	return string(c)
}

// IsEResident reports whether the schema belongs to the e-resident family.
func (c SchemaCode) IsEResident() bool {
	switch c {
	case SchemaEResidentFirstAuth, SchemaEResidentAuth, SchemaEResidentApplicantAuth,
		SchemaEResidentKeyCreation, SchemaEResidentProlong, SchemaEResidentResetPin:
		return true
	}
	return false
}

// Method is a verification method a device may attempt within a schema.
type Method string

const (
	MethodBankID          Method = "bank-id"
	MethodMonobank        Method = "monobank"
	MethodPrivatBank      Method = "privatbank"
	MethodNfc             Method = "nfc"
	MethodPhotoID         Method = "photo-id"
	MethodEResidentQrCode Method = "eresident-qr-code"
	MethodEResidentMrz    Method = "eresident-mrz"
	MethodEResidentNfc    Method = "eresident-nfc"
	MethodQes             Method = "qes"
	MethodEmailOtp        Method = "email-otp"
)

var validMethods = map[Method]bool{
	MethodBankID:          true,
	MethodMonobank:        true,
	MethodPrivatBank:      true,
	MethodNfc:             true,
	MethodPhotoID:         true,
	MethodEResidentQrCode: true,
	MethodEResidentMrz:    true,
	MethodEResidentNfc:    true,
	MethodQes:             true,
	MethodEmailOtp:        true,
}

// ParseMethod validates external input against the closed set of methods.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !validMethods[m] {
		return "", fmt.Errorf("unknown auth method: %q", s)
	}
	return m, nil
}

func (m Method) String() string {
	return string(m)
}

// IsBank reports whether the method is a bank redirect flow.
func (m Method) IsBank() bool {
	return m == MethodBankID || m == MethodMonobank || m == MethodPrivatBank
}

// Condition is a tag accumulated on a process by strategies. Conditions decide
// which sub-methods are offered next.
type Condition string

const (
	ConditionHasDocumentPhoto Condition = "has-document-photo"
	ConditionNoDocumentPhoto  Condition = "no-document-photo"
	ConditionBankVerified     Condition = "bank-verified"
	ConditionDocumentVerified Condition = "document-verified"
	ConditionEmailVerified    Condition = "email-verified"
)

// StepsStatus is the lifecycle status of a UserAuthSteps process.
type StepsStatus string

const (
	StepsStatusProcessing StepsStatus = "processing"
	StepsStatusSuccess    StepsStatus = "success"
	StepsStatusFailure    StepsStatus = "failure"
	StepsStatusCompleted  StepsStatus = "completed"
)

// ParseStepsStatus validates a status name.
func ParseStepsStatus(s string) (StepsStatus, error) {
	switch st := StepsStatus(s); st {
	case StepsStatusProcessing, StepsStatusSuccess, StepsStatusFailure, StepsStatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown steps status: %q", s)
}
