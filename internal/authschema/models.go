package authschema

import (
	"fmt"
	"time"

	"idauth/pkg/domain"
)

// Duration is a time.Duration that reads and writes as a Go duration string ("10m").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(parsed)
	return nil
}

// MethodConfig holds the limits for one method within a schema. A method may
// require follow-up sub-methods; sub-methods themselves never nest.
type MethodConfig struct {
	MaxAttempts       int                            `toml:"max_attempts" json:"maxAttempts"`
	MaxVerifyAttempts int                            `toml:"max_verify_attempts" json:"maxVerifyAttempts"`
	TTL               Duration                       `toml:"ttl" json:"ttl"`
	Condition         domain.Condition               `toml:"condition" json:"condition,omitempty"`
	SubMethods        map[domain.Method]MethodConfig `toml:"sub_methods" json:"subMethods,omitempty"`
}

// Qualifies reports whether a sub-method with this config is offered given the
// conditions accumulated on a process.
func (c MethodConfig) Qualifies(conditions []domain.Condition) bool {
	if c.Condition == "" {
		return true
	}
	for _, cond := range conditions {
		if cond == c.Condition {
			return true
		}
	}
	return false
}

// AdmitAfter declares that a schema is reachable only after a prior process of
// Code exists for the same identity, optionally in Status.
type AdmitAfter struct {
	Code   domain.SchemaCode  `toml:"code" json:"code"`
	Status domain.StepsStatus `toml:"status" json:"status,omitempty"`
}

// Outcome maps a (status, method) pair reached after a successful verify to
// the client-facing process code.
type Outcome struct {
	Status domain.StepsStatus `toml:"status" json:"status"`
	Method domain.Method      `toml:"method" json:"method"`
	Code   string             `toml:"code" json:"code"`
}

// Schema is a declarative authentication flow definition.
type Schema struct {
	Code         domain.SchemaCode              `toml:"code" json:"code"`
	SessionType  domain.SessionType             `toml:"session_type" json:"sessionType,omitempty"`
	Methods      []domain.Method                `toml:"methods" json:"methods"`
	MethodConfig map[domain.Method]MethodConfig `toml:"method_config" json:"methodConfig"`
	Checks       []string                       `toml:"checks" json:"checks,omitempty"`
	AdmitAfter   []AdmitAfter                   `toml:"admit_after" json:"admitAfter,omitempty"`
	Outcomes     []Outcome                      `toml:"outcomes" json:"outcomes"`
	outcomeIndex map[outcomeKey]domain.ProcessCode
}

type outcomeKey struct {
	status domain.StepsStatus
	method domain.Method
}

// HasMethod reports whether m is a top-level method of the schema.
func (s *Schema) HasMethod(m domain.Method) bool {
	for _, method := range s.Methods {
		if method == m {
			return true
		}
	}
	return false
}

// Config returns the limits for m, looking at top-level methods first and then
// sub-methods.
func (s *Schema) Config(m domain.Method) (MethodConfig, bool) {
	if cfg, ok := s.MethodConfig[m]; ok {
		return cfg, true
	}
	for _, parent := range s.Methods {
		if cfg, ok := s.MethodConfig[parent].SubMethods[m]; ok {
			return cfg, true
		}
	}
	return MethodConfig{}, false
}

// SubMethodConfig returns the config of sub-method m under parent.
func (s *Schema) SubMethodConfig(parent, m domain.Method) (MethodConfig, bool) {
	cfg, ok := s.MethodConfig[parent].SubMethods[m]
	return cfg, ok
}

// QualifyingSubMethods lists the sub-methods of parent offered under conditions,
// in a stable order.
func (s *Schema) QualifyingSubMethods(parent domain.Method, conditions []domain.Condition) []domain.Method {
	subs := s.MethodConfig[parent].SubMethods
	out := make([]domain.Method, 0, len(subs))
	for _, m := range sortedMethods(subs) {
		if subs[m].Qualifies(conditions) {
			out = append(out, m)
		}
	}
	return out
}

// ProcessCodeFor looks up the outcome table.
func (s *Schema) ProcessCodeFor(status domain.StepsStatus, m domain.Method) (domain.ProcessCode, bool) {
	pc, ok := s.outcomeIndex[outcomeKey{status: status, method: m}]
	return pc, ok
}
