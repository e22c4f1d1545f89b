// Package strategy turns a verified identity payload into the canonical user
// identifier, the conditions that steer follow-up methods and the staged
// minting parameters of a process. One strategy serves each schema code.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"idauth/internal/authmethod"
	"idauth/internal/identity"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

// Input is everything a strategy may look at.
type Input struct {
	Schema      domain.SchemaCode
	SessionType domain.SessionType
	ProcessID   string
	Method      domain.Method
	// SubMethod is true when Method follows a completed top-level step.
	SubMethod bool
	// KnownIdentifier was resolved by an earlier step of the same process.
	KnownIdentifier string
	// User is the authenticated session owner, nil for anonymous flows.
	User    *domain.User
	Payload *authmethod.IdentityPayload
}

// Result is a strategy's verdict.
type Result struct {
	UserIdentifier string
	Conditions     []domain.Condition
}

// Strategy verifies one schema's identity rules.
type Strategy interface {
	Verify(ctx context.Context, in Input) (*Result, error)
}

// identityKey selects the payload attribute the identifier derives from.
type identityKey int

const (
	byTaxID identityKey = iota
	byDocument
	byEmail
)

// identityStrategy derives an identifier and, when authenticated is set,
// requires it to match the session owner.
type identityStrategy struct {
	key           identityKey
	authenticated bool
	hasher        *identity.Hasher
	params        *ParamsCache
}

func (s *identityStrategy) Verify(ctx context.Context, in Input) (*Result, error) {
	if in.Payload == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "provider returned no identity")
	}
	if s.authenticated && in.User == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authenticated session required")
	}

	id, err := s.derive(in)
	if err != nil {
		return nil, err
	}
	if in.KnownIdentifier != "" && id != in.KnownIdentifier {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeUserIdentifierMismatch,
			"identity does not match the earlier step")
	}
	if s.authenticated && id != in.User.Identifier {
		return nil, dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeUserIdentifierMismatch,
			"identity does not match the signed-in user")
	}

	p := in.Payload
	params := &MintingParams{
		Schema:         in.Schema,
		Method:         in.Method,
		SessionType:    in.SessionType,
		UserIdentifier: id,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		MiddleName:     p.MiddleName,
		BirthDate:      p.BirthDate,
		Email:          p.Email,
		Document:       p.Document,
	}
	if in.SubMethod {
		// Sub-methods confirm the person; names come from the first step.
		if prev, err := s.params.Load(ctx, in.Schema, in.ProcessID); err == nil {
			prev.Method = in.Method
			params = prev
		}
	}
	if err := s.params.Save(ctx, in.ProcessID, params); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage authorization data")
	}
	return &Result{UserIdentifier: id, Conditions: conditionsFor(p)}, nil
}

func (s *identityStrategy) derive(in Input) (string, error) {
	p := in.Payload
	switch s.key {
	case byTaxID:
		if taxID := strings.TrimSpace(p.TaxID); taxID != "" {
			return s.hasher.FromTaxID(taxID), nil
		}
	case byDocument:
		if p.Document != nil && p.Document.Number != "" && p.Document.Country != "" {
			return s.hasher.FromDocument(p.Document.Country, p.Document.Number), nil
		}
	case byEmail:
		if email := strings.TrimSpace(p.Email); email != "" {
			return s.hasher.FromEmail(email), nil
		}
	}
	// A face match carries no identity attribute of its own.
	if in.SubMethod && in.KnownIdentifier != "" {
		return in.KnownIdentifier, nil
	}
	return "", dErrors.NewProcess(dErrors.CodeForbidden, domain.ProcessCodeDocumentNotVerified,
		"verified identity is missing its identifying attribute")
}

func conditionsFor(p *authmethod.IdentityPayload) []domain.Condition {
	var out []domain.Condition
	switch p.Method {
	case domain.MethodBankID, domain.MethodMonobank, domain.MethodPrivatBank:
		out = append(out, domain.ConditionBankVerified)
	case domain.MethodNfc, domain.MethodEResidentNfc, domain.MethodEResidentMrz, domain.MethodEResidentQrCode:
		out = append(out, domain.ConditionDocumentVerified)
	case domain.MethodEmailOtp:
		out = append(out, domain.ConditionEmailVerified)
	}
	if p.Document != nil {
		if p.Document.HasPhoto {
			out = append(out, domain.ConditionHasDocumentPhoto)
		} else {
			out = append(out, domain.ConditionNoDocumentPhoto)
		}
	}
	return out
}

// Table dispatches by schema code.
type Table struct {
	strategies map[domain.SchemaCode]Strategy
}

// NewTable builds the strategy for every schema code.
func NewTable(hasher *identity.Hasher, params *ParamsCache) *Table {
	user := &identityStrategy{key: byTaxID, hasher: hasher, params: params}
	authenticatedUser := &identityStrategy{key: byTaxID, authenticated: true, hasher: hasher, params: params}
	eResident := &identityStrategy{key: byDocument, hasher: hasher, params: params}
	authenticatedEResident := &identityStrategy{key: byDocument, authenticated: true, hasher: hasher, params: params}
	applicant := &identityStrategy{key: byEmail, hasher: hasher, params: params}

	return &Table{strategies: map[domain.SchemaCode]Strategy{
		domain.SchemaAuthorization:          user,
		domain.SchemaCabinetAuthorization:   user,
		domain.SchemaDeviceRebind:           user,
		domain.SchemaProlong:                authenticatedUser,
		domain.SchemaSignatureKeyCreation:   authenticatedUser,
		domain.SchemaReauthentication:       authenticatedUser,
		domain.SchemaResetPin:               authenticatedUser,
		domain.SchemaDocumentIssue:          authenticatedUser,
		domain.SchemaProfileUpdate:          authenticatedUser,
		domain.SchemaMilitaryBondsSigning:   authenticatedUser,
		domain.SchemaPaymentConfirmation:    authenticatedUser,
		domain.SchemaEResidentFirstAuth:     eResident,
		domain.SchemaEResidentAuth:          eResident,
		domain.SchemaEResidentKeyCreation:   authenticatedEResident,
		domain.SchemaEResidentProlong:       authenticatedEResident,
		domain.SchemaEResidentResetPin:      authenticatedEResident,
		domain.SchemaEResidentApplicantAuth: applicant,
	}}
}

// Get returns the strategy for code. A missing entry is a wiring bug.
func (t *Table) Get(code domain.SchemaCode) (Strategy, error) {
	s, ok := t.strategies[code]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnhandledCase, fmt.Sprintf("no strategy for schema %s", code))
	}
	return s, nil
}

// Register replaces the strategy for code.
func (t *Table) Register(code domain.SchemaCode, s Strategy) {
	t.strategies[code] = s
}
