package credstore

import (
	"context"

	"github.com/rpgjournals/credstore/internal/flows"
)

// SendVerificationCode issues a fresh 6-digit code for email, replacing any
// live one, and hands it to the Mailer. A second request for the same email
// (or client IP, see WithClientIP) inside the resend cooldown returns
// ErrRateLimited.
func (e *Engine) SendVerificationCode(ctx context.Context, email string) error {
	return flows.RunSendVerificationCode(ctx, email, e.flowDeps.Verification)
}

// ConfirmVerificationCode consumes the live code for email. On a match the
// email is marked verified and Register will accept it.
func (e *Engine) ConfirmVerificationCode(ctx context.Context, email, code string) (bool, error) {
	return flows.RunConfirmVerificationCode(ctx, email, code, e.flowDeps.Verification)
}
