// Package authschema holds the read-only catalog of authentication schemas:
// the methods each schema allows, per-method limits, the admission graph and
// the outcome table that maps verify results to process codes.
package authschema

import (
	"errors"
	"fmt"
	"sort"

	"idauth/pkg/domain"
	"idauth/pkg/platform/sentinel"
)

// Catalog is an immutable set of schemas keyed by code. It is safe for
// concurrent reads without locking.
type Catalog struct {
	schemas map[domain.SchemaCode]*Schema
}

// NewCatalog validates the definitions and indexes them.
func NewCatalog(defs []Schema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[domain.SchemaCode]*Schema, len(defs))}
	for i := range defs {
		s := defs[i]
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.schemas[s.Code]; dup {
			return nil, fmt.Errorf("duplicate schema code %q", s.Code)
		}
		c.schemas[s.Code] = &s
	}
	if err := c.validateAdmission(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the schema for code.
func (c *Catalog) Get(code domain.SchemaCode) (*Schema, error) {
	s, ok := c.schemas[code]
	if !ok {
		return nil, fmt.Errorf("schema %s: %w", code, sentinel.ErrNotFound)
	}
	return s, nil
}

// All returns every schema ordered by code.
func (c *Catalog) All() []*Schema {
	codes := make([]string, 0, len(c.schemas))
	for code := range c.schemas {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	out := make([]*Schema, 0, len(codes))
	for _, code := range codes {
		out = append(out, c.schemas[domain.SchemaCode(code)])
	}
	return out
}

func (s *Schema) validate() error {
	if _, err := domain.ParseSchemaCode(string(s.Code)); err != nil {
		return err
	}
	if len(s.Methods) == 0 {
		return fmt.Errorf("schema %s: no methods", s.Code)
	}
	for _, m := range s.Methods {
		if _, err := domain.ParseMethod(string(m)); err != nil {
			return fmt.Errorf("schema %s: %w", s.Code, err)
		}
		cfg, ok := s.MethodConfig[m]
		if !ok {
			return fmt.Errorf("schema %s: method %s has no config", s.Code, m)
		}
		if err := cfg.validate(); err != nil {
			return fmt.Errorf("schema %s method %s: %w", s.Code, m, err)
		}
		for sub, subCfg := range cfg.SubMethods {
			if _, err := domain.ParseMethod(string(sub)); err != nil {
				return fmt.Errorf("schema %s: %w", s.Code, err)
			}
			if err := subCfg.validate(); err != nil {
				return fmt.Errorf("schema %s method %s/%s: %w", s.Code, m, sub, err)
			}
			if len(subCfg.SubMethods) > 0 {
				return fmt.Errorf("schema %s method %s/%s: sub-methods cannot nest", s.Code, m, sub)
			}
		}
	}
	for m := range s.MethodConfig {
		if !s.HasMethod(m) {
			return fmt.Errorf("schema %s: config for unlisted method %s", s.Code, m)
		}
	}

	s.outcomeIndex = make(map[outcomeKey]domain.ProcessCode, len(s.Outcomes))
	for _, o := range s.Outcomes {
		if o.Status != domain.StepsStatusProcessing && o.Status != domain.StepsStatusSuccess {
			return fmt.Errorf("schema %s: outcome status %q must be processing or success", s.Code, o.Status)
		}
		if _, ok := s.Config(o.Method); !ok {
			return fmt.Errorf("schema %s: outcome for unknown method %s", s.Code, o.Method)
		}
		pc, err := domain.ParseProcessCode(o.Code)
		if err != nil {
			return fmt.Errorf("schema %s: %w", s.Code, err)
		}
		s.outcomeIndex[outcomeKey{status: o.Status, method: o.Method}] = pc
	}
	return nil
}

func (c MethodConfig) validate() error {
	if c.MaxAttempts <= 0 {
		return errors.New("max_attempts must be positive")
	}
	if c.MaxVerifyAttempts <= 0 {
		return errors.New("max_verify_attempts must be positive")
	}
	if c.TTL <= 0 {
		return errors.New("ttl must be positive")
	}
	return nil
}

// validateAdmission rejects dangling references and cycles in the admission graph.
func (c *Catalog) validateAdmission() error {
	for _, s := range c.schemas {
		for _, a := range s.AdmitAfter {
			if _, ok := c.schemas[a.Code]; !ok {
				return fmt.Errorf("schema %s: admit_after references unknown schema %s", s.Code, a.Code)
			}
			if a.Status != "" {
				if _, err := domain.ParseStepsStatus(string(a.Status)); err != nil {
					return fmt.Errorf("schema %s: %w", s.Code, err)
				}
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[domain.SchemaCode]int, len(c.schemas))
	var visit func(code domain.SchemaCode) error
	visit = func(code domain.SchemaCode) error {
		switch state[code] {
		case visiting:
			return fmt.Errorf("admission cycle through schema %s", code)
		case done:
			return nil
		}
		state[code] = visiting
		for _, a := range c.schemas[code].AdmitAfter {
			if err := visit(a.Code); err != nil {
				return err
			}
		}
		state[code] = done
		return nil
	}
	for code := range c.schemas {
		if err := visit(code); err != nil {
			return err
		}
	}
	return nil
}

func sortedMethods(m map[domain.Method]MethodConfig) []domain.Method {
	out := make([]domain.Method, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
