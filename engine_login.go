package credstore

import (
	"context"

	"github.com/rpgjournals/credstore/internal/flows"
)

// Login authenticates email and password and starts a session.
//
// Unknown email, unverified account and wrong password all return
// ErrInvalidCredentials after one key derivation each.
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return flows.RunLogin(ctx, email, password, e.flowDeps.Login)
}

// Logout destroys the session named by cookieHeader and returns the cleared
// Set-Cookie value. The cleared cookie is returned even when err != nil.
func (e *Engine) Logout(ctx context.Context, cookieHeader string) (string, error) {
	return flows.RunLogout(ctx, cookieHeader, e.flowDeps.Logout)
}
