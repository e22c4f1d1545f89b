package token

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

const uniqueValueConstraint = "refresh_tokens_value_mobile_uid_key"

const tokenColumns = `value, mobile_uid, session_type, user_identifier, auth_entry_point,
	auth_entry_point_history, expiration_time, expiration_date, is_deleted, expired,
	is_compromised, platform_type, platform_version, app_version, last_activity_date, created_at`

// PostgresStore persists refresh tokens. Both expiration columns are written
// from ExpiresAt on insert. State changes are conditional single-statement
// updates, so a stale read can never undo a deletion or a compromise.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, t *RefreshToken) error {
	return s.insert(ctx, tx.Q(ctx, s.db), t)
}

func (s *PostgresStore) insert(ctx context.Context, q tx.Querier, t *RefreshToken) error {
	entry, history, err := encodeEntryPoints(t)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, t.Value, t.MobileUID, string(t.SessionType), nullString(t.UserIdentifier), entry, history,
		t.ExpirationTime(), t.ExpiresAt, t.IsDeleted, t.Expired, t.IsCompromised,
		nullString(string(t.PlatformType)), nullString(t.PlatformVersion), nullString(t.AppVersion),
		t.LastActivityDate, t.CreatedAt)
	if postgres.IsUniqueViolation(err, uniqueValueConstraint) {
		return fmt.Errorf("refresh token: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReplaceForDevice(ctx context.Context, t *RefreshToken) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Q(ctx, s.db)
		if err := lockDevice(ctx, q, t.MobileUID); err != nil {
			return err
		}
		if err := supersede(ctx, q, t); err != nil {
			return err
		}
		return s.insert(ctx, q, t)
	})
}

func supersede(ctx context.Context, q tx.Querier, t *RefreshToken) error {
	if _, err := q.ExecContext(ctx, `
		UPDATE refresh_tokens SET is_deleted = TRUE
		WHERE mobile_uid = $1 AND session_type = $2 AND NOT is_deleted
	`, t.MobileUID, string(t.SessionType)); err != nil {
		return fmt.Errorf("supersede refresh tokens: %w", err)
	}
	return nil
}

// lockDevice serializes writers that create or compromise the device's tokens
// until the surrounding transaction ends.
func lockDevice(ctx context.Context, q tx.Querier, mobileUID string) error {
	if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "refresh_tokens:"+mobileUID); err != nil {
		return fmt.Errorf("lock device tokens: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, value string) (*RefreshToken, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE value = $1`, value)
	return scanToken(row)
}

func (s *PostgresStore) FindLatestForDevice(ctx context.Context, mobileUID string, sessionType domain.SessionType) (*RefreshToken, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+tokenColumns+` FROM refresh_tokens
		WHERE mobile_uid = $1 AND session_type = $2
		ORDER BY created_at DESC LIMIT 1
	`, mobileUID, string(sessionType))
	return scanToken(row)
}

func (s *PostgresStore) TouchActivity(ctx context.Context, value, mobileUID string, a Activity) (bool, error) {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE refresh_tokens SET
			last_activity_date = $3,
			platform_type = COALESCE($4, platform_type),
			platform_version = COALESCE($5, platform_version),
			app_version = COALESCE($6, app_version)
		WHERE value = $1 AND mobile_uid = $2
			AND NOT is_deleted AND NOT expired AND NOT is_compromised
			AND expiration_date > $3
	`, value, mobileUID, a.At, nullString(string(a.PlatformType)), nullString(a.PlatformVersion), nullString(a.AppVersion))
	n, err := affected(res, err, "touch refresh token")
	return n > 0, err
}

func (s *PostgresStore) SoftDelete(ctx context.Context, value, mobileUID string) (bool, error) {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE refresh_tokens SET is_deleted = TRUE
		WHERE value = $1 AND mobile_uid = $2 AND NOT is_deleted
	`, value, mobileUID)
	n, err := affected(res, err, "delete refresh token")
	return n > 0, err
}

func (s *PostgresStore) Rotate(ctx context.Context, oldValue string, next *RefreshToken) (bool, error) {
	rotated := false
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Q(ctx, s.db)
		if err := lockDevice(ctx, q, next.MobileUID); err != nil {
			return err
		}
		res, err := q.ExecContext(ctx, `
			UPDATE refresh_tokens SET is_deleted = TRUE, expired = TRUE
			WHERE value = $1 AND mobile_uid = $2
				AND NOT is_deleted AND NOT expired AND NOT is_compromised
		`, oldValue, next.MobileUID)
		n, err := affected(res, err, "retire refresh token")
		if err != nil || n == 0 {
			return err
		}
		if next.SessionType.IsDeviceBound() {
			if err := supersede(ctx, q, next); err != nil {
				return err
			}
		}
		if err := s.insert(ctx, q, next); err != nil {
			return err
		}
		rotated = true
		return nil
	})
	return rotated, err
}

func (s *PostgresStore) MarkCompromised(ctx context.Context, mobileUID string) (int, error) {
	var n int
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Q(ctx, s.db)
		if err := lockDevice(ctx, q, mobileUID); err != nil {
			return err
		}
		res, err := q.ExecContext(ctx, `
			UPDATE refresh_tokens SET is_compromised = TRUE
			WHERE mobile_uid = $1 AND NOT is_deleted AND NOT expired AND NOT is_compromised
		`, mobileUID)
		n, err = affected(res, err, "mark refresh tokens compromised")
		return err
	})
	return n, err
}

func (s *PostgresStore) ExpireBefore(ctx context.Context, now time.Time) (int, error) {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE refresh_tokens SET expired = TRUE
		WHERE NOT expired AND expiration_date <= $1
	`, now)
	return affected(res, err, "expire refresh tokens")
}

func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expiration_date < $1`, cutoff)
	return affected(res, err, "purge refresh tokens")
}

func affected(res sql.Result, err error, op string) (int, error) {
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

func encodeEntryPoints(t *RefreshToken) (string, []byte, error) {
	entry, err := json.Marshal(t.AuthEntryPoint)
	if err != nil {
		return "", nil, fmt.Errorf("encode auth entry point: %w", err)
	}
	history := t.AuthEntryPointHistory
	if history == nil {
		history = []EntryPoint{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return "", nil, fmt.Errorf("encode auth entry point history: %w", err)
	}
	return string(entry), raw, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*RefreshToken, error) {
	var (
		t                                     RefreshToken
		sessionType                           string
		userIdentifier, entry                 sql.NullString
		platform, platformVersion, appVersion sql.NullString
		history                               []byte
		expirationTime                        int64
	)
	err := row.Scan(&t.Value, &t.MobileUID, &sessionType, &userIdentifier, &entry, &history,
		&expirationTime, &t.ExpiresAt, &t.IsDeleted, &t.Expired, &t.IsCompromised,
		&platform, &platformVersion, &appVersion, &t.LastActivityDate, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	t.SessionType = domain.SessionType(sessionType)
	t.UserIdentifier = userIdentifier.String
	t.PlatformType = domain.PlatformType(platform.String)
	t.PlatformVersion = platformVersion.String
	t.AppVersion = appVersion.String
	if entry.Valid && entry.String != "" {
		if err := json.Unmarshal([]byte(entry.String), &t.AuthEntryPoint); err != nil {
			return nil, fmt.Errorf("decode auth entry point: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &t.AuthEntryPointHistory); err != nil {
			return nil, fmt.Errorf("decode auth entry point history: %w", err)
		}
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// PostgresOverrides reads refresh_token_expiration_overrides.
type PostgresOverrides struct {
	db *sql.DB
}

func NewPostgresOverrides(db *sql.DB) *PostgresOverrides {
	return &PostgresOverrides{db: db}
}

func (o *PostgresOverrides) ListOverrides(ctx context.Context, platform domain.PlatformType, sessionType domain.SessionType) ([]Override, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT min_app_version, lifetime_seconds FROM refresh_token_expiration_overrides
		WHERE platform_type = $1 AND session_type = $2
	`, string(platform), string(sessionType))
	if err != nil {
		return nil, fmt.Errorf("list expiration overrides: %w", err)
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		var (
			minVersion string
			seconds    int64
		)
		if err := rows.Scan(&minVersion, &seconds); err != nil {
			return nil, fmt.Errorf("scan expiration override: %w", err)
		}
		v, err := domain.ParseAppVersion(minVersion)
		if err != nil {
			continue
		}
		out = append(out, Override{
			PlatformType:  platform,
			MinAppVersion: v,
			SessionType:   sessionType,
			Lifetime:      time.Duration(seconds) * time.Second,
		})
	}
	return out, rows.Err()
}
