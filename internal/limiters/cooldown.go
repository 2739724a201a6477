package limiters

import (
	"context"
	"errors"
	"time"
)

var ErrRateLimited = errors.New("rate limited")

// Markers is the presence-based limiter surface of the credential store.
type Markers interface {
	WasRecentlyRateLimited(ctx context.Context, key string) (bool, error)
	SetRateLimit(ctx context.Context, key string, ttl time.Duration) error
	ClearRateLimit(ctx context.Context, key string) error
}

type CooldownConfig struct {
	// Operation scopes the marker keys, e.g. "send-code".
	Operation        string
	Cooldown         time.Duration
	EnableIPThrottle bool
}

// CooldownLimiter allows one gated action per identifier (and per client IP,
// when enabled) within the cooldown window.
type CooldownLimiter struct {
	markers Markers
	config  CooldownConfig
}

func NewCooldownLimiter(m Markers, cfg CooldownConfig) *CooldownLimiter {
	return &CooldownLimiter{
		markers: m,
		config:  cfg,
	}
}

// Slot is a held cooldown. Release it when the gated action demonstrably
// failed so the caller is not penalized for it.
type Slot struct {
	limiter *CooldownLimiter
	keys    []string
}

// Acquire checks every key for this identifier and ip, then sets them all.
// Backend errors are returned as-is.
func (l *CooldownLimiter) Acquire(ctx context.Context, identifier, ip string) (*Slot, error) {
	if l == nil {
		return &Slot{}, nil
	}

	keys := []string{l.IdentifierKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.IPKey(ip))
	}

	for _, key := range keys {
		limited, err := l.markers.WasRecentlyRateLimited(ctx, key)
		if err != nil {
			return nil, err
		}
		if limited {
			return nil, ErrRateLimited
		}
	}

	slot := &Slot{limiter: l}
	for _, key := range keys {
		if err := l.markers.SetRateLimit(ctx, key, l.config.Cooldown); err != nil {
			_ = slot.Release(ctx)
			return nil, err
		}
		slot.keys = append(slot.keys, key)
	}
	return slot, nil
}

// Release clears the markers set by Acquire. It is safe on a nil or empty slot.
func (s *Slot) Release(ctx context.Context) error {
	if s == nil || s.limiter == nil {
		return nil
	}
	var firstErr error
	for _, key := range s.keys {
		if err := s.limiter.markers.ClearRateLimit(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.keys = nil
	return firstErr
}

func (l *CooldownLimiter) IdentifierKey(identifier string) string {
	return l.config.Operation + ":email:" + identifier
}

func (l *CooldownLimiter) IPKey(ip string) string {
	return l.config.Operation + ":ip:" + ip
}
