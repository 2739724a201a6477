package stores

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpgjournals/credstore/session"
)

const markerValue = "1"

type sqlTable struct {
	name     string
	keyCol   string
	valueCol string // empty for presence-only tables
}

var sqlTables = map[Space]sqlTable{
	SpaceCode:      {name: "auth_verification_codes", keyCol: "email", valueCol: "code"},
	SpaceRateLimit: {name: "auth_rate_limits", keyCol: `"key"`},
	SpaceVerified:  {name: "auth_verified_emails", keyCol: "email"},
}

// SQL is the relational variant. Every row carries expires_at as unix
// milliseconds, fixed at write time; reads filter on it and never sweep.
//
// Queries use $n placeholders numbered in order of first appearance, which
// both the pgx stdlib driver and go-sqlite3 accept.
type SQL struct {
	db    *sql.DB
	clock Clock
}

// NewSQL returns a relational store over db. A nil clock uses time.Now.
func NewSQL(db *sql.DB, clock Clock) *SQL {
	return &SQL{db: db, clock: clock}
}

func (s *SQL) Kind() Kind { return KindSQL }

func (s *SQL) nowMillis() int64 {
	return s.clock.now().UnixMilli()
}

func (s *SQL) Put(ctx context.Context, space Space, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, space, key)
	}
	expiresAt := s.clock.now().Add(ttl).UnixMilli()

	if space == SpaceSession {
		return s.putSession(ctx, key, value, expiresAt)
	}

	t, ok := sqlTables[space]
	if !ok {
		return ErrUnknownSpace
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+t.name+` WHERE `+t.keyCol+` = $1`, key); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if t.valueCol == "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO `+t.name+` (`+t.keyCol+`, expires_at) VALUES ($1, $2)`,
			key, expiresAt)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO `+t.name+` (`+t.keyCol+`, `+t.valueCol+`, expires_at) VALUES ($1, $2, $3)`,
			key, value, expiresAt)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// putSession inserts without a pre-delete: tokens are unique by construction.
func (s *SQL) putSession(ctx context.Context, token, payload string, expiresAt int64) error {
	d, err := session.Decode(payload)
	if err != nil {
		return err
	}

	var journal sql.NullInt64
	if d.JournalID != nil {
		journal = sql.NullInt64{Int64: *d.JournalID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_sessions (token, user_id, email, name, role, journal_id, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		token, d.UserID, d.Email, d.Name, d.Role, journal, expiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, space Space, key string) (string, bool, error) {
	if space == SpaceSession {
		return s.getSession(ctx, key)
	}

	t, ok := sqlTables[space]
	if !ok {
		return "", false, ErrUnknownSpace
	}

	col := t.valueCol
	if col == "" {
		col = t.keyCol
	}

	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT `+col+` FROM `+t.name+` WHERE `+t.keyCol+` = $1 AND expires_at > $2`,
		key, s.nowMillis()).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if t.valueCol == "" {
		return markerValue, true, nil
	}
	return v, true, nil
}

func (s *SQL) getSession(ctx context.Context, token string) (string, bool, error) {
	var (
		d       session.Data
		journal sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email, name, role, journal_id FROM user_sessions
		 WHERE token = $1 AND expires_at > $2`,
		token, s.nowMillis()).Scan(&d.UserID, &d.Email, &d.Name, &d.Role, &journal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if journal.Valid {
		id := journal.Int64
		d.JournalID = &id
	}

	payload, err := session.Encode(&d)
	if err != nil {
		return "", false, nil
	}
	return payload, true, nil
}

func (s *SQL) Delete(ctx context.Context, space Space, key string) error {
	var q string
	if space == SpaceSession {
		q = `DELETE FROM user_sessions WHERE token = $1`
	} else {
		t, ok := sqlTables[space]
		if !ok {
			return ErrUnknownSpace
		}
		q = `DELETE FROM ` + t.name + ` WHERE ` + t.keyCol + ` = $1`
	}

	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQL) ConsumeIfMatch(ctx context.Context, space Space, key, expected string) (bool, error) {
	if space == SpaceSession {
		return false, ErrUnsupported
	}
	t, ok := sqlTables[space]
	if !ok {
		return false, ErrUnknownSpace
	}

	var (
		res sql.Result
		err error
	)
	if t.valueCol == "" {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(markerValue)) != 1 {
			return false, nil
		}
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM `+t.name+` WHERE `+t.keyCol+` = $1 AND expires_at > $2`,
			key, s.nowMillis())
	} else {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM `+t.name+` WHERE `+t.keyCol+` = $1 AND `+t.valueCol+` = $2 AND expires_at > $3`,
			key, expected, s.nowMillis())
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Ping checks connectivity.
func (s *SQL) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
