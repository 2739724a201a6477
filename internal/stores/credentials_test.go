package stores

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/rpgjournals/credstore/credential"
)

func credentialRepos(t *testing.T) map[string]credential.Repository {
	t.Helper()
	clock := newFakeClock()
	return map[string]credential.Repository{
		"sql":    NewSQLCredentials(openSQLite(t), clock.Now),
		"memory": NewMemoryCredentials(clock.Now),
	}
}

func TestCredentialsCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	for name, repo := range credentialRepos(t) {
		t.Run(name, func(t *testing.T) {
			jid := int64(12)
			aff := "Univ"
			c := &credential.Credential{
				ID:           uuid.NewString(),
				Email:        "a@x.com",
				PasswordHash: "aa:bb",
				DisplayName:  "Ann",
				Role:         credential.RoleEditor,
				JournalID:    &jid,
				Affiliation:  &aff,
				Verified:     true,
			}
			if err := repo.Create(ctx, c); err != nil {
				t.Fatalf("create: %v", err)
			}

			got, err := repo.ByEmail(ctx, "a@x.com")
			if err != nil {
				t.Fatalf("by email: %v", err)
			}
			if got.ID != c.ID || got.Role != credential.RoleEditor || got.JournalID == nil || *got.JournalID != 12 || !got.Verified {
				t.Fatalf("unexpected credential %+v", got)
			}
			if got.Affiliation == nil || *got.Affiliation != "Univ" {
				t.Fatalf("affiliation lost: %+v", got.Affiliation)
			}

			if _, err := repo.ByID(ctx, c.ID); err != nil {
				t.Fatalf("by id: %v", err)
			}

			dup := *c
			dup.ID = uuid.NewString()
			if err := repo.Create(ctx, &dup); !errors.Is(err, credential.ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got %v", err)
			}

			if _, err := repo.ByEmail(ctx, "nobody@x.com"); !errors.Is(err, credential.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCredentialsUpdatePassword(t *testing.T) {
	ctx := context.Background()
	for name, repo := range credentialRepos(t) {
		t.Run(name, func(t *testing.T) {
			c := &credential.Credential{ID: uuid.NewString(), Email: "p@x.com", PasswordHash: "old", DisplayName: "P", Role: credential.RoleAuthor}
			_ = repo.Create(ctx, c)

			if err := repo.UpdatePassword(ctx, c.ID, "new"); err != nil {
				t.Fatalf("update: %v", err)
			}
			got, _ := repo.ByID(ctx, c.ID)
			if got.PasswordHash != "new" {
				t.Fatalf("password not updated: %q", got.PasswordHash)
			}
			if err := repo.UpdatePassword(ctx, "missing", "x"); !errors.Is(err, credential.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCredentialsResetTokens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, repo := range credentialRepos(t) {
		t.Run(name, func(t *testing.T) {
			first := &credential.ResetToken{ID: uuid.NewString(), UserID: "u1", TokenHash: "h1", ExpiresAt: now.Add(30 * time.Minute)}
			second := &credential.ResetToken{ID: uuid.NewString(), UserID: "u1", TokenHash: "h2", ExpiresAt: now.Add(30 * time.Minute)}
			if err := repo.SaveResetToken(ctx, first); err != nil {
				t.Fatalf("save first: %v", err)
			}
			if err := repo.SaveResetToken(ctx, second); err != nil {
				t.Fatalf("save second: %v", err)
			}

			if _, err := repo.ConsumeResetToken(ctx, "h1", now); !errors.Is(err, credential.ErrNotFound) {
				t.Fatalf("superseded token must not be consumable, got %v", err)
			}

			got, err := repo.ConsumeResetToken(ctx, "h2", now)
			if err != nil || got.UserID != "u1" || got.UsedAt == nil {
				t.Fatalf("consume = %+v, %v", got, err)
			}
			if _, err := repo.ConsumeResetToken(ctx, "h2", now); !errors.Is(err, credential.ErrNotFound) {
				t.Fatalf("used token must not be consumable twice, got %v", err)
			}

			expired := &credential.ResetToken{ID: uuid.NewString(), UserID: "u2", TokenHash: "h3", ExpiresAt: now.Add(time.Minute)}
			_ = repo.SaveResetToken(ctx, expired)
			if _, err := repo.ConsumeResetToken(ctx, "h3", now.Add(time.Minute)); !errors.Is(err, credential.ErrNotFound) {
				t.Fatalf("expired token must not be consumable, got %v", err)
			}
		})
	}
}

func TestSQLCredentialsCreateDetectsPostgresDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewSQLCredentials(db, newFakeClock().Now)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	c := &credential.Credential{ID: uuid.NewString(), Email: "dup@x.com", PasswordHash: "aa:bb", Role: credential.RoleAuthor}
	if err := repo.Create(context.Background(), c); !errors.Is(err, credential.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// A driver failure whose text merely mentions a constraint is not a duplicate.
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("proxy: UNIQUE constraint failed upstream (23505)"))
	err = repo.Create(context.Background(), c)
	if errors.Is(err, credential.ErrDuplicate) || !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true},
		{"sqlite not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, false},
		{"plain text", errors.New("UNIQUE constraint failed: users.email"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("isUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
