package authschema

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"idauth/pkg/domain"
)

// PostgresStore persists each schema as a JSONB document keyed by code.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]Schema, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT definition FROM auth_schemas ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list auth schemas: %w", err)
	}
	defer rows.Close()

	var out []Schema
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan auth schema: %w", err)
		}
		var schema Schema
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("decode auth schema: %w", err)
		}
		out = append(out, schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auth schemas: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, schema *Schema) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode auth schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_schemas (code, definition, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (code) DO UPDATE SET
			definition = EXCLUDED.definition,
			updated_at = EXCLUDED.updated_at
	`, string(schema.Code), raw)
	if err != nil {
		return fmt.Errorf("upsert auth schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, code domain.SchemaCode) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_schemas WHERE code = $1`, string(code)); err != nil {
		return fmt.Errorf("delete auth schema: %w", err)
	}
	return nil
}
