package stores

import (
	"context"
	"sync"
	"time"

	"github.com/rpgjournals/credstore/credential"
)

// MemoryCredentials is a process-lifetime credential repository for
// development and tests. It is not authoritative.
type MemoryCredentials struct {
	clock Clock

	mu      sync.Mutex
	byID    map[string]*credential.Credential
	byEmail map[string]string
	resets  map[string]*credential.ResetToken // keyed by token hash
}

func NewMemoryCredentials(clock Clock) *MemoryCredentials {
	return &MemoryCredentials{
		clock:   clock,
		byID:    make(map[string]*credential.Credential),
		byEmail: make(map[string]string),
		resets:  make(map[string]*credential.ResetToken),
	}
}

func (r *MemoryCredentials) Create(_ context.Context, c *credential.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[c.Email]; ok {
		return credential.ErrDuplicate
	}
	if _, ok := r.byID[c.ID]; ok {
		return credential.ErrDuplicate
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.clock.now()
	}

	cp := *c
	r.byID[c.ID] = &cp
	r.byEmail[c.Email] = c.ID
	return nil
}

func (r *MemoryCredentials) ByEmail(_ context.Context, email string) (*credential.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, credential.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *MemoryCredentials) ByID(_ context.Context, id string) (*credential.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, credential.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryCredentials) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return credential.ErrNotFound
	}
	c.PasswordHash = passwordHash
	return nil
}

func (r *MemoryCredentials) SaveResetToken(_ context.Context, t *credential.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, existing := range r.resets {
		if existing.UserID == t.UserID {
			delete(r.resets, hash)
		}
	}
	cp := *t
	r.resets[t.TokenHash] = &cp
	return nil
}

func (r *MemoryCredentials) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time) (*credential.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.resets[tokenHash]
	if !ok || t.UsedAt != nil || !now.Before(t.ExpiresAt) {
		return nil, credential.ErrNotFound
	}
	used := now
	t.UsedAt = &used

	cp := *t
	return &cp, nil
}
