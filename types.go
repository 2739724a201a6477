package credstore

import (
	"github.com/rpgjournals/credstore/credential"
	"github.com/rpgjournals/credstore/internal/flows"
	"github.com/rpgjournals/credstore/session"
)

// Mailer delivers verification codes and password reset tokens. Engine never
// logs either value; a mail failure is logged with the recipient only.
type Mailer = flows.Mailer

// RegisterRequest carries the fields of the account registration form.
// Role defaults to author when empty; editors and reviewers must name a
// JournalID.
type RegisterRequest = flows.RegisterRequest

// AuthResult is returned by Register and Login. SetCookie is the complete
// Set-Cookie header value carrying Token.
type AuthResult = flows.AuthResult

// SessionData is the payload stored for every session.
type SessionData = session.Data

type Role = credential.Role

const (
	RoleAuthor   = credential.RoleAuthor
	RoleEditor   = credential.RoleEditor
	RoleReviewer = credential.RoleReviewer
)
