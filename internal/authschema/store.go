package authschema

import (
	"context"

	"idauth/pkg/domain"
)

// Store persists schema definitions. Definitions are read once at startup.
type Store interface {
	List(ctx context.Context) ([]Schema, error)
	Upsert(ctx context.Context, s *Schema) error
	Delete(ctx context.Context, code domain.SchemaCode) error
}
