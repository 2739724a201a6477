package session

import (
	"context"
	"time"
)

// Sessions is the slice of the credential store facade the Manager needs.
type Sessions interface {
	CreateSession(ctx context.Context, data Data) (string, error)
	GetSession(ctx context.Context, token string) (*Data, error)
	DestroySession(ctx context.Context, token string) error
}

// Manager ties session records to the session cookie. It is the only writer
// of session records.
type Manager struct {
	store Sessions
	ttl   time.Duration
}

// NewManager returns a Manager backed by store whose cookies live for ttl,
// which should match the lifetime store gives session records. A
// non-positive ttl means TTL.
func NewManager(store Sessions, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = TTL
	}
	return &Manager{store: store, ttl: ttl}
}

// Start creates a session for data and returns its token together with the
// Set-Cookie value carrying it.
func (m *Manager) Start(ctx context.Context, data Data) (string, string, error) {
	token, err := m.store.CreateSession(ctx, data)
	if err != nil {
		return "", "", err
	}
	return token, CookieWithTTL(token, m.ttl), nil
}

// Load resolves the session referenced by a Cookie header. A missing cookie or
// unknown/expired token returns nil with no error; only backend failures are
// reported.
func (m *Manager) Load(ctx context.Context, cookieHeader string) (*Data, error) {
	token, ok := TokenFromHeader(cookieHeader)
	if !ok {
		return nil, nil
	}
	return m.store.GetSession(ctx, token)
}

// End destroys the session referenced by cookieHeader, if any, and returns the
// cleared cookie. The cleared cookie is returned even when the destroy fails.
func (m *Manager) End(ctx context.Context, cookieHeader string) (string, error) {
	token, ok := TokenFromHeader(cookieHeader)
	if !ok {
		return ClearedCookie(), nil
	}
	return ClearedCookie(), m.store.DestroySession(ctx, token)
}
