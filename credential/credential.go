// Package credential defines the registered-identity model and the
// repository contract the store variants implement for it.
package credential

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("credential not found")
	ErrDuplicate = errors.New("credential already exists")
)

// Role is the editorial role a credential is registered with.
type Role string

const (
	RoleAuthor   Role = "author"
	RoleEditor   Role = "editor"
	RoleReviewer Role = "reviewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAuthor, RoleEditor, RoleReviewer:
		return true
	}
	return false
}

// NeedsJournal reports whether the role is bound to a journal.
func (r Role) NeedsJournal() bool {
	return r == RoleEditor || r == RoleReviewer
}

// Credential is a registered identity.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	JournalID    *int64
	Affiliation  *string
	Verified     bool
	CreatedAt    time.Time
}

// ResetToken is a stored password-reset grant. Only the sha256 hex of the
// mailed token is kept.
type ResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// Repository persists credentials and their reset grants.
type Repository interface {
	Create(ctx context.Context, c *Credential) error
	ByEmail(ctx context.Context, email string) (*Credential, error)
	ByID(ctx context.Context, id string) (*Credential, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SaveResetToken stores t, removing any earlier grants for the same user.
	SaveResetToken(ctx context.Context, t *ResetToken) error
	// ConsumeResetToken marks the unused, unexpired grant with tokenHash as
	// used and returns it. Anything else yields ErrNotFound.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*ResetToken, error)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
