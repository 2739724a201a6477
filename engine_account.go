package credstore

import (
	"context"

	"github.com/rpgjournals/credstore/internal/flows"
)

// Register creates a credential for a verified email and starts its first
// session.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	return flows.RunRegister(ctx, req, e.flowDeps.Account)
}
