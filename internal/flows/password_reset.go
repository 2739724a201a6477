package flows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpgjournals/credstore/credential"
)

type PasswordResetMetrics struct {
	ResetRequest        int
	ResetConfirmSuccess int
	ResetConfirmFailure int
}

type PasswordResetEvents struct {
	ResetRequest string
	ResetConfirm string
}

type PasswordResetDeps struct {
	Credentials         credential.Repository
	Hasher              Hasher
	GenerateToken       func() (string, error)
	NewID               func() string
	Now                 func() time.Time
	TTL                 time.Duration
	Mailer              Mailer
	AcquireRequestSlot  AcquireFunc
	ClientIPFromContext func(context.Context) string

	Hooks   Hooks
	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
}

// HashResetToken returns the stored form of a mailed reset token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RunRequestPasswordReset mails a reset link to email when a credential
// exists for it. Unknown addresses succeed silently after generating and
// hashing a token they never receive.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) error {
	deps.Hooks.normalize()
	if deps.Credentials == nil || deps.GenerateToken == nil || deps.NewID == nil || deps.Now == nil {
		return ErrEngineNotReady
	}

	email = credential.NormalizeEmail(email)
	if !ValidEmail(email) {
		return ErrInvalidEmail
	}

	release := noopRelease
	if deps.AcquireRequestSlot != nil {
		ip := ""
		if deps.ClientIPFromContext != nil {
			ip = deps.ClientIPFromContext(ctx)
		}
		r, err := deps.AcquireRequestSlot(ctx, email, ip)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				deps.Hooks.EmitRateLimit(ctx, "password_reset_request", emailMeta(email))
			}
			return err
		}
		release = r
	}

	deps.Hooks.MetricInc(deps.Metrics.ResetRequest)

	// The token is minted before the lookup so known and unknown addresses
	// do the same work up to the write.
	raw, err := deps.GenerateToken()
	if err != nil {
		_ = release(ctx)
		return err
	}
	grant := &credential.ResetToken{
		ID:        deps.NewID(),
		TokenHash: HashResetToken(raw),
		ExpiresAt: deps.Now().Add(deps.TTL),
	}

	c, err := deps.Credentials.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			deps.Hooks.EmitAudit(ctx, deps.Events.ResetRequest, true, "", nil, emailMeta(email))
			return nil
		}
		_ = release(ctx)
		return err
	}
	grant.UserID = c.ID
	if err := deps.Credentials.SaveResetToken(ctx, grant); err != nil {
		_ = release(ctx)
		return err
	}

	if deps.Mailer == nil {
		_ = release(ctx)
		return ErrMailerUnavailable
	}
	if err := deps.Mailer.SendPasswordReset(ctx, email, raw); err != nil {
		_ = release(ctx)
		deps.Hooks.Logger.WithField("email", email).WithError(err).Error("send password reset")
		deps.Hooks.EmitAudit(ctx, deps.Events.ResetRequest, false, c.ID, ErrMailerUnavailable, emailMeta(email))
		return fmt.Errorf("%w: %v", ErrMailerUnavailable, err)
	}

	deps.Hooks.EmitAudit(ctx, deps.Events.ResetRequest, true, c.ID, nil, emailMeta(email))
	return nil
}

// RunResetPassword redeems a mailed reset token and sets a new password. The
// token is marked used before the password is rewritten, so it can never be
// redeemed twice.
func RunResetPassword(ctx context.Context, rawToken, password, confirm string, deps PasswordResetDeps) error {
	deps.Hooks.normalize()
	if deps.Credentials == nil || deps.Hasher == nil || deps.Now == nil {
		return ErrEngineNotReady
	}

	fail := func(userID string, err error) error {
		deps.Hooks.MetricInc(deps.Metrics.ResetConfirmFailure)
		deps.Hooks.EmitAudit(ctx, deps.Events.ResetConfirm, false, userID, err, nil)
		return err
	}

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" || password == "" || confirm == "" {
		return fail("", ErrMissingFields)
	}
	if err := checkPassword(password, confirm); err != nil {
		return fail("", err)
	}

	grant, err := deps.Credentials.ConsumeResetToken(ctx, HashResetToken(rawToken), deps.Now())
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return fail("", ErrResetInvalid)
		}
		return fail("", err)
	}

	hash, err := deps.Hasher.Hash(password)
	if err != nil {
		return fail(grant.UserID, err)
	}
	if err := deps.Credentials.UpdatePassword(ctx, grant.UserID, hash); err != nil {
		return fail(grant.UserID, err)
	}

	deps.Hooks.MetricInc(deps.Metrics.ResetConfirmSuccess)
	deps.Hooks.EmitAudit(ctx, deps.Events.ResetConfirm, true, grant.UserID, nil, nil)
	return nil
}
