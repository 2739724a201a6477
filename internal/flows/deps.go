package flows

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/rpgjournals/credstore/session"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Verification  VerificationDeps
	Account       AccountDeps
	Login         LoginDeps
	Logout        LogoutDeps
	PasswordReset PasswordResetDeps
}

// Hooks are the observability callbacks shared by every flow.
type Hooks struct {
	MetricInc     func(int)
	EmitAudit     func(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string)
	EmitRateLimit func(ctx context.Context, scope string, metadata func() map[string]string)
	Logger        logrus.FieldLogger
}

func (h *Hooks) normalize() {
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if h.EmitRateLimit == nil {
		h.EmitRateLimit = func(context.Context, string, func() map[string]string) {}
	}
	if h.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		h.Logger = l
	}
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// Mailer delivers verification codes and reset links.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendPasswordReset(ctx context.Context, email, rawToken string) error
}

// SessionStarter mints a session and its cookie.
type SessionStarter interface {
	Start(ctx context.Context, data session.Data) (token, setCookie string, err error)
}

// SessionEnder destroys the session named by a Cookie header.
type SessionEnder interface {
	End(ctx context.Context, cookieHeader string) (clearCookie string, err error)
}

// AcquireFunc takes a limiter slot for identifier and ip. The returned
// release undoes the slot.
type AcquireFunc func(ctx context.Context, identifier, ip string) (release func(context.Context) error, err error)

func noopRelease(context.Context) error { return nil }

func emailMeta(email string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"email": email}
	}
}

// AuthResult is returned by flows that establish a session.
type AuthResult struct {
	UserID    string
	Email     string
	Role      string
	Token     string
	SetCookie string
}
