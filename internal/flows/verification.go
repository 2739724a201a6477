package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rpgjournals/credstore/credential"
)

// CodeStore is the verification slice of the credential store facade.
type CodeStore interface {
	StoreVerificationCode(ctx context.Context, email, code string) error
	VerifyCode(ctx context.Context, email, code string) (bool, error)
	MarkEmailVerified(ctx context.Context, email string) error
}

type VerificationMetrics struct {
	CodeIssued   int
	CodeVerified int
	CodeRejected int
}

type VerificationEvents struct {
	CodeRequest string
	CodeConfirm string
}

type VerificationDeps struct {
	Codes               CodeStore
	GenerateCode        func() (string, error)
	AcquireSendSlot     AcquireFunc
	Mailer              Mailer
	ClientIPFromContext func(context.Context) string

	Hooks   Hooks
	Metrics VerificationMetrics
	Events  VerificationEvents
}

// RunSendVerificationCode issues a fresh code for email, replacing any live
// one, and mails it. The send cooldown is released again when the code could
// not be stored or delivered.
func RunSendVerificationCode(ctx context.Context, email string, deps VerificationDeps) error {
	deps.Hooks.normalize()
	if deps.Codes == nil || deps.GenerateCode == nil {
		return ErrEngineNotReady
	}

	email = credential.NormalizeEmail(email)
	if !ValidEmail(email) {
		deps.Hooks.EmitAudit(ctx, deps.Events.CodeRequest, false, "", ErrInvalidEmail, nil)
		return ErrInvalidEmail
	}

	release := noopRelease
	if deps.AcquireSendSlot != nil {
		ip := ""
		if deps.ClientIPFromContext != nil {
			ip = deps.ClientIPFromContext(ctx)
		}
		r, err := deps.AcquireSendSlot(ctx, email, ip)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				deps.Hooks.EmitRateLimit(ctx, "send_code", emailMeta(email))
			}
			deps.Hooks.EmitAudit(ctx, deps.Events.CodeRequest, false, "", err, emailMeta(email))
			return err
		}
		release = r
	}

	code, err := deps.GenerateCode()
	if err != nil {
		_ = release(ctx)
		return err
	}

	if err := deps.Codes.StoreVerificationCode(ctx, email, code); err != nil {
		_ = release(ctx)
		deps.Hooks.EmitAudit(ctx, deps.Events.CodeRequest, false, "", err, emailMeta(email))
		return err
	}

	if deps.Mailer == nil {
		_ = release(ctx)
		return ErrMailerUnavailable
	}
	if err := deps.Mailer.SendVerificationCode(ctx, email, code); err != nil {
		if relErr := release(ctx); relErr != nil {
			deps.Hooks.Logger.WithField("email", email).WithError(relErr).Warn("release send-code cooldown")
		}
		deps.Hooks.Logger.WithField("email", email).WithError(err).Error("send verification code")
		deps.Hooks.EmitAudit(ctx, deps.Events.CodeRequest, false, "", ErrMailerUnavailable, emailMeta(email))
		return fmt.Errorf("%w: %v", ErrMailerUnavailable, err)
	}

	deps.Hooks.MetricInc(deps.Metrics.CodeIssued)
	deps.Hooks.EmitAudit(ctx, deps.Events.CodeRequest, true, "", nil, emailMeta(email))
	return nil
}

// RunConfirmVerificationCode consumes code for email and, on a match, sets
// the verified-email marker that registration checks.
func RunConfirmVerificationCode(ctx context.Context, email, code string, deps VerificationDeps) (bool, error) {
	deps.Hooks.normalize()
	if deps.Codes == nil {
		return false, ErrEngineNotReady
	}

	email = credential.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return false, ErrMissingFields
	}

	ok, err := deps.Codes.VerifyCode(ctx, email, code)
	if err != nil {
		deps.Hooks.EmitAudit(ctx, deps.Events.CodeConfirm, false, "", err, emailMeta(email))
		return false, err
	}
	if !ok {
		deps.Hooks.MetricInc(deps.Metrics.CodeRejected)
		deps.Hooks.EmitAudit(ctx, deps.Events.CodeConfirm, false, "", nil, emailMeta(email))
		return false, nil
	}

	if err := deps.Codes.MarkEmailVerified(ctx, email); err != nil {
		return false, err
	}

	deps.Hooks.MetricInc(deps.Metrics.CodeVerified)
	deps.Hooks.EmitAudit(ctx, deps.Events.CodeConfirm, true, "", nil, emailMeta(email))
	return true, nil
}
