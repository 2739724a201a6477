package flows

import (
	"context"
	"errors"

	"github.com/rpgjournals/credstore/credential"
)

type LoginMetrics struct {
	LoginSuccess int
	LoginFailure int
}

type LoginEvents struct {
	Login string
}

type LoginDeps struct {
	Credentials credential.Repository
	Hasher      Hasher
	Sessions    SessionStarter
	// DummyHash is verified against when no usable credential exists so that
	// every failure costs one key derivation.
	DummyHash string

	Hooks   Hooks
	Metrics LoginMetrics
	Events  LoginEvents
}

// RunLogin authenticates email and password and starts a session. Unknown
// email, unverified account and wrong password all yield
// ErrInvalidCredentials.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*AuthResult, error) {
	deps.Hooks.normalize()
	if deps.Credentials == nil || deps.Hasher == nil || deps.Sessions == nil {
		return nil, ErrEngineNotReady
	}

	email = credential.NormalizeEmail(email)

	reject := func(reason string) (*AuthResult, error) {
		deps.Hooks.MetricInc(deps.Metrics.LoginFailure)
		deps.Hooks.EmitAudit(ctx, deps.Events.Login, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"email": email, "reason": reason}
		})
		return nil, ErrInvalidCredentials
	}

	if email == "" || password == "" {
		return reject("missing_fields")
	}

	c, err := deps.Credentials.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			deps.Hasher.Verify(password, deps.DummyHash)
			return reject("unknown_email")
		}
		return nil, err
	}

	valid := deps.Hasher.Verify(password, c.PasswordHash)
	if !c.Verified {
		return reject("unverified")
	}
	if !valid {
		return reject("wrong_password")
	}

	result, err := startSession(ctx, c, deps.Sessions)
	if err != nil {
		return nil, err
	}

	deps.Hooks.MetricInc(deps.Metrics.LoginSuccess)
	deps.Hooks.EmitAudit(ctx, deps.Events.Login, true, c.ID, nil, emailMeta(email))
	return result, nil
}
