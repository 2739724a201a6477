package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/rpgjournals/credstore/credential"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// SQLCredentials is the authoritative credential repository.
type SQLCredentials struct {
	db    *sql.DB
	clock Clock
}

// NewSQLCredentials returns a credential repository over db.
func NewSQLCredentials(db *sql.DB, clock Clock) *SQLCredentials {
	return &SQLCredentials{db: db, clock: clock}
}

func (r *SQLCredentials) Create(ctx context.Context, c *credential.Credential) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.clock.now()
	}

	var journal sql.NullInt64
	if c.JournalID != nil {
		journal = sql.NullInt64{Int64: *c.JournalID, Valid: true}
	}
	var affiliation sql.NullString
	if c.Affiliation != nil {
		affiliation = sql.NullString{String: *c.Affiliation, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, role, journal_id, affiliation, verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Email, c.PasswordHash, c.DisplayName, string(c.Role), journal, affiliation, c.Verified, c.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return credential.ErrDuplicate
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

const credentialColumns = `id, email, password_hash, display_name, role, journal_id, affiliation, verified, created_at`

func (r *SQLCredentials) ByEmail(ctx context.Context, email string) (*credential.Credential, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM users WHERE email = $1`, email))
}

func (r *SQLCredentials) ByID(ctx context.Context, id string) (*credential.Credential, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM users WHERE id = $1`, id))
}

func (r *SQLCredentials) scanOne(row *sql.Row) (*credential.Credential, error) {
	var (
		c           credential.Credential
		role        string
		journal     sql.NullInt64
		affiliation sql.NullString
		createdAt   int64
	)
	err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.DisplayName, &role, &journal, &affiliation, &c.Verified, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.Role = credential.Role(role)
	if journal.Valid {
		id := journal.Int64
		c.JournalID = &id
	}
	if affiliation.Valid {
		a := affiliation.String
		c.Affiliation = &a
	}
	c.CreatedAt = time.UnixMilli(createdAt)
	return &c, nil
}

func (r *SQLCredentials) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return credential.ErrNotFound
	}
	return nil
}

func (r *SQLCredentials) SaveResetToken(ctx context.Context, t *credential.ResetToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, t.UserID); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *SQLCredentials) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*credential.ResetToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		t         credential.ResetToken
		expiresAt int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at FROM password_reset_tokens
		 WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2`,
		tokenHash, now.UnixMilli()).Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// The used_at guard makes a concurrent consumer lose the race.
	res, err := tx.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at = $1 WHERE id = $2 AND used_at IS NULL`,
		now.UnixMilli(), t.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return nil, credential.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	t.ExpiresAt = time.UnixMilli(expiresAt)
	used := now
	t.UsedAt = &used
	return &t, nil
}

// isUniqueViolation reports whether err is a duplicate-key error from the
// Postgres or SQLite driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
