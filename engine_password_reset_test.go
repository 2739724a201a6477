package credstore

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"testing"
	"time"
)

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	te := newTestEngine(t, nil)

	if err := te.RequestPasswordReset(context.Background(), "ghost@x.io"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	if te.mailer.count() != 0 {
		t.Fatal("expected no mail for unknown email")
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.register(t, "a@x.io", "correct-horse")

	if err := te.RequestPasswordReset(ctx, "a@x.io"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	raw := te.mailer.reset("a@x.io")
	if len(raw) != 64 {
		t.Fatalf("expected 64-char reset token, got %q", raw)
	}

	if err := te.ResetPassword(ctx, raw, "battery-staple", "battery-staple"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := te.Login(ctx, "a@x.io", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to fail, got %v", err)
	}
	if _, err := te.Login(ctx, "a@x.io", "battery-staple"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}

	if err := te.ResetPassword(ctx, raw, "another-pass", "another-pass"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected reused token to fail, got %v", err)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.register(t, "a@x.io", "correct-horse")

	if err := te.RequestPasswordReset(ctx, "a@x.io"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	raw := te.mailer.reset("a@x.io")

	te.clock.Advance(31 * time.Minute)
	if err := te.ResetPassword(ctx, raw, "battery-staple", "battery-staple"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestPasswordResetNewRequestReplacesOldToken(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.register(t, "a@x.io", "correct-horse")

	if err := te.RequestPasswordReset(ctx, "a@x.io"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	first := te.mailer.reset("a@x.io")

	if err := te.RequestPasswordReset(ctx, "a@x.io"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected cooldown on second request, got %v", err)
	}

	te.clock.Advance(61 * time.Second)
	if err := te.RequestPasswordReset(ctx, "a@x.io"); err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	second := te.mailer.reset("a@x.io")

	if err := te.ResetPassword(ctx, first, "battery-staple", "battery-staple"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected superseded token to fail, got %v", err)
	}
	if err := te.ResetPassword(ctx, second, "battery-staple", "battery-staple"); err != nil {
		t.Fatalf("expected latest token to work, got %v", err)
	}
}

func TestResetPasswordPolicy(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	if err := te.ResetPassword(ctx, "", "battery-staple", "battery-staple"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if err := te.ResetPassword(ctx, "tok", "short", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := te.ResetPassword(ctx, "tok", "battery-staple", "battery-stapler"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if err := te.ResetPassword(ctx, "tok", "battery-staple", "battery-staple"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid for unknown token, got %v", err)
	}
}

func TestRequestPasswordResetMailFailure(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()
	te.register(t, "a@x.io", "correct-horse")

	te.mailer.setFail(true)
	if err := te.RequestPasswordReset(ctx, "a@x.io"); !errors.Is(err, ErrMailerUnavailable) {
		t.Fatalf("expected ErrMailerUnavailable, got %v", err)
	}
	te.mailer.setFail(false)
	if err := te.RequestPasswordReset(ctx, "a@x.io"); err != nil {
		t.Fatalf("expected retry after mail failure, got %v", err)
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestRequestPasswordResetUnknownEmailMintsToken(t *testing.T) {
	src := &countingReader{r: rand.Reader}
	te := newTestEngine(t, func(b *Builder) { b.WithRandom(src) })
	ctx := context.Background()
	te.register(t, "a@x.io", "correct-horse")

	before := src.n
	if err := te.RequestPasswordReset(ctx, "a@x.io"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	known := src.n - before

	before = src.n
	if err := te.RequestPasswordReset(ctx, "ghost@x.io"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	unknown := src.n - before

	if known == 0 || unknown != known {
		t.Fatalf("expected equal token work, known=%d unknown=%d", known, unknown)
	}
	if te.mailer.reset("ghost@x.io") != "" {
		t.Fatal("expected no reset mail for unknown email")
	}
}
