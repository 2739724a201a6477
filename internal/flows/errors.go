package flows

import "errors"

var (
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidInput         = errors.New("invalid input")
	ErrMissingFields        = errors.New("missing required fields")
	ErrWeakPassword         = errors.New("password too short")
	ErrPasswordMismatch     = errors.New("password confirmation mismatch")
	ErrInvalidRole          = errors.New("invalid role")
	ErrMissingJournal       = errors.New("role requires a journal")
	ErrAccountExists        = errors.New("account already exists")
	ErrVerificationRequired = errors.New("email not verified")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrRateLimited          = errors.New("rate limited")
	ErrMailerUnavailable    = errors.New("mail delivery failed")
	ErrResetInvalid         = errors.New("password reset token invalid or expired")
	ErrEngineNotReady       = errors.New("engine not ready")
)
