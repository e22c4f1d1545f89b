package challenge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"idauth/internal/platform/postgres"
	"idauth/pkg/domain"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/platform/tx"
)

const challengeColumns = `kind, mobile_uid, nonce, user_identifier, correlation_id, platform, status,
	headers, result_data, error, created_at, updated_at`

// PostgresStore persists challenges in the challenges table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Replace(ctx context.Context, ch *Challenge) error {
	headers, err := json.Marshal(ch.Headers)
	if err != nil {
		return fmt.Errorf("encode challenge headers: %w", err)
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Q(ctx, s.db)
		if _, err := q.ExecContext(ctx,
			`DELETE FROM challenges WHERE kind = $1 AND mobile_uid = $2`,
			string(ch.Kind), ch.MobileUID); err != nil {
			return fmt.Errorf("delete previous challenge: %w", err)
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO challenges (`+challengeColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, string(ch.Kind), ch.MobileUID, ch.Nonce, ch.UserIdentifier, nullString(ch.CorrelationID),
			nullString(string(ch.Platform)), string(ch.Status), headers, nullJSON(ch.ResultData),
			nullString(ch.Error), ch.CreatedAt, ch.UpdatedAt)
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("challenge for device %s: %w", ch.MobileUID, sentinel.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert challenge: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) FindByNonce(ctx context.Context, kind Kind, nonce string) (*Challenge, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE kind = $1 AND nonce = $2`, string(kind), nonce)
	return scanChallenge(row)
}

func (s *PostgresStore) FindByDevice(ctx context.Context, kind Kind, mobileUID string) (*Challenge, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE kind = $1 AND mobile_uid = $2`, string(kind), mobileUID)
	return scanChallenge(row)
}

func (s *PostgresStore) Update(ctx context.Context, ch *Challenge, from Status) error {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE challenges SET
			correlation_id = $3, status = $4, result_data = $5, error = $6, updated_at = $7
		WHERE kind = $1 AND nonce = $2 AND status = $8
	`, string(ch.Kind), ch.Nonce, nullString(ch.CorrelationID), string(ch.Status),
		nullJSON(ch.ResultData), nullString(ch.Error), ch.UpdatedAt, string(from))
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("challenge with nonce: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListStale(ctx context.Context, status Status, before time.Time, limit int) ([]*Challenge, error) {
	rows, err := tx.Q(ctx, s.db).QueryContext(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3
	`, string(status), before, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale challenges: %w", err)
	}
	defer rows.Close()

	var out []*Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale challenges: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row scanner) (*Challenge, error) {
	var (
		ch                                 Challenge
		kind, status                       string
		correlationID, platform, errString sql.NullString
		headers, result                    []byte
	)
	err := row.Scan(&kind, &ch.MobileUID, &ch.Nonce, &ch.UserIdentifier, &correlationID, &platform,
		&status, &headers, &result, &errString, &ch.CreatedAt, &ch.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("challenge: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan challenge: %w", err)
	}
	ch.Kind = Kind(kind)
	ch.Status = Status(status)
	ch.CorrelationID = correlationID.String
	ch.Platform = domain.PlatformType(platform.String)
	ch.Error = errString.String
	if len(result) > 0 {
		ch.ResultData = json.RawMessage(result)
	}
	if err := json.Unmarshal(headers, &ch.Headers); err != nil {
		return nil, fmt.Errorf("decode challenge headers: %w", err)
	}
	return &ch, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
