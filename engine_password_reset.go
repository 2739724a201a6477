package credstore

import (
	"context"

	"github.com/rpgjournals/credstore/internal/flows"
)

// RequestPasswordReset mails a single-use reset token when a credential
// exists for email. Unknown addresses return nil so callers cannot test for
// accounts.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	return flows.RunRequestPasswordReset(ctx, email, e.flowDeps.PasswordReset)
}

// ResetPassword consumes rawToken and replaces the account password.
// Unknown, used or expired tokens return ErrResetInvalid.
func (e *Engine) ResetPassword(ctx context.Context, rawToken, password, confirm string) error {
	return flows.RunResetPassword(ctx, rawToken, password, confirm, e.flowDeps.PasswordReset)
}
