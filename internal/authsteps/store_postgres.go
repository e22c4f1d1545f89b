package authsteps

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"idauth/internal/platform/postgres"
	"idauth/pkg/domain"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/platform/tx"
)

const processColumns = `process_id, mobile_uid, user_identifier, code, status, status_history, steps,
	conditions, admitted_after_process, is_revoked, created_at, updated_at`

// PostgresStore persists processes in user_auth_steps. Steps and history are
// JSONB documents; conditions are a text array.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *UserAuthSteps) error {
	history, steps, err := encodeProcess(p)
	if err != nil {
		return err
	}
	_, err = tx.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO user_auth_steps (`+processColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ProcessID, p.MobileUID, nullString(p.UserIdentifier), string(p.Code), string(p.Status),
		history, steps, pq.Array(conditionStrings(p.Conditions)), nullString(p.AdmittedAfterProcess),
		p.IsRevoked, p.CreatedAt, p.UpdatedAt)
	if postgres.IsUniqueViolation(err, "") {
		return fmt.Errorf("process %s: %w", p.ProcessID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert process: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByProcessID(ctx context.Context, processID string) (*UserAuthSteps, error) {
	row := tx.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+processColumns+` FROM user_auth_steps WHERE process_id = $1`, processID)
	return scanProcess(row)
}

func (s *PostgresStore) Update(ctx context.Context, p *UserAuthSteps) error {
	history, steps, err := encodeProcess(p)
	if err != nil {
		return err
	}
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE user_auth_steps SET
			user_identifier = $2, status = $3, status_history = $4, steps = $5,
			conditions = $6, admitted_after_process = $7, is_revoked = $8, updated_at = $9
		WHERE process_id = $1
	`, p.ProcessID, nullString(p.UserIdentifier), string(p.Status), history, steps,
		pq.Array(conditionStrings(p.Conditions)), nullString(p.AdmittedAfterProcess), p.IsRevoked, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update process: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update process: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("process %s: %w", p.ProcessID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindAdmitting(ctx context.Context, code domain.SchemaCode, userIdentifier, mobileUID string, status domain.StepsStatus) (*UserAuthSteps, error) {
	column, value := "mobile_uid", mobileUID
	if userIdentifier != "" {
		column, value = "user_identifier", userIdentifier
	}
	row := tx.Q(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+processColumns+` FROM user_auth_steps
		WHERE code = $1 AND `+column+` = $2 AND NOT is_revoked AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC LIMIT 1
	`, string(code), value, string(status))
	return scanProcess(row)
}

func (s *PostgresStore) RevokeMatching(ctx context.Context, code domain.SchemaCode, mobileUID, userIdentifier string) (int, error) {
	res, err := tx.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE user_auth_steps SET is_revoked = TRUE
		WHERE code = $1 AND mobile_uid = $2 AND NOT is_revoked AND ($3 = '' OR user_identifier = $3)
	`, string(code), mobileUID, userIdentifier)
	if err != nil {
		return 0, fmt.Errorf("revoke processes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke processes: %w", err)
	}
	return int(n), nil
}

func encodeProcess(p *UserAuthSteps) ([]byte, []byte, error) {
	history := p.StatusHistory
	if history == nil {
		history = []StatusChange{}
	}
	steps := p.Steps
	if steps == nil {
		steps = []Step{}
	}
	rawHistory, err := json.Marshal(history)
	if err != nil {
		return nil, nil, fmt.Errorf("encode status history: %w", err)
	}
	rawSteps, err := json.Marshal(steps)
	if err != nil {
		return nil, nil, fmt.Errorf("encode steps: %w", err)
	}
	return rawHistory, rawSteps, nil
}

func scanProcess(row interface{ Scan(...any) error }) (*UserAuthSteps, error) {
	var (
		p                             UserAuthSteps
		userIdentifier, admittedAfter sql.NullString
		code, status                  string
		history, steps                []byte
		conditions                    []string
	)
	err := row.Scan(&p.ProcessID, &p.MobileUID, &userIdentifier, &code, &status, &history, &steps,
		pq.Array(&conditions), &admittedAfter, &p.IsRevoked, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("process: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan process: %w", err)
	}
	p.UserIdentifier = userIdentifier.String
	p.AdmittedAfterProcess = admittedAfter.String
	p.Code = domain.SchemaCode(code)
	p.Status = domain.StepsStatus(status)
	for _, c := range conditions {
		p.Conditions = append(p.Conditions, domain.Condition(c))
	}
	if err := json.Unmarshal(history, &p.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history: %w", err)
	}
	if err := json.Unmarshal(steps, &p.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	return &p, nil
}

func conditionStrings(conds []domain.Condition) []string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = string(c)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
