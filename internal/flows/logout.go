package flows

import "context"

type LogoutMetrics struct {
	Logout int
}

type LogoutEvents struct {
	Logout string
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Sessions SessionEnder

	Hooks   Hooks
	Metrics LogoutMetrics
	Events  LogoutEvents
}

// RunLogout destroys the session named by cookieHeader, if any. The cleared
// cookie is returned in every case so the browser drops it.
func RunLogout(ctx context.Context, cookieHeader string, deps LogoutDeps) (string, error) {
	deps.Hooks.normalize()
	if deps.Sessions == nil {
		return "", ErrEngineNotReady
	}

	cleared, err := deps.Sessions.End(ctx, cookieHeader)
	if err != nil {
		deps.Hooks.EmitAudit(ctx, deps.Events.Logout, false, "", err, nil)
		return cleared, err
	}

	deps.Hooks.MetricInc(deps.Metrics.Logout)
	deps.Hooks.EmitAudit(ctx, deps.Events.Logout, true, "", nil, nil)
	return cleared, nil
}
