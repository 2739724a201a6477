package stores

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps every backend I/O failure.
	ErrUnavailable = errors.New("store backend unavailable")
	// ErrUnsupported is returned for operations a variant cannot express.
	ErrUnsupported = errors.New("store operation unsupported")
	// ErrUnknownSpace is returned for a Space outside the declared set.
	ErrUnknownSpace = errors.New("unknown store space")
)

// Kind names a store variant.
type Kind string

const (
	KindRedis  Kind = "redis"
	KindSQL    Kind = "sql"
	KindMemory Kind = "memory"
)

// Durable reports whether records survive a process restart.
func (k Kind) Durable() bool { return k == KindRedis || k == KindSQL }

// Space partitions the key namespace. Each space is single-slot per key.
type Space int

const (
	SpaceSession Space = iota + 1
	SpaceCode
	SpaceRateLimit
	SpaceVerified
)

func (s Space) String() string {
	switch s {
	case SpaceSession:
		return "session"
	case SpaceCode:
		return "verify"
	case SpaceRateLimit:
		return "ratelimit"
	case SpaceVerified:
		return "verified"
	default:
		return "unknown"
	}
}

func (s Space) valid() bool {
	return s >= SpaceSession && s <= SpaceVerified
}

// Clock is the wall-clock source used for expiry.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Adapter is the uniform expiring key-value contract.
//
// Put upserts value with absolute expiry now+ttl; ttl <= 0 stores nothing and
// removes any live record. Get reports absent for keys never set, deleted or
// expired. Delete is idempotent. ConsumeIfMatch deletes the record only when
// its live value equals expected, in one atomic step.
type Adapter interface {
	Kind() Kind
	Put(ctx context.Context, space Space, key, value string, ttl time.Duration) error
	Get(ctx context.Context, space Space, key string) (string, bool, error)
	Delete(ctx context.Context, space Space, key string) error
	ConsumeIfMatch(ctx context.Context, space Space, key, expected string) (bool, error)
}
