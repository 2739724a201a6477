package credstore

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rpgjournals/credstore/credential"
	"github.com/rpgjournals/credstore/internal/stores"
	"github.com/rpgjournals/credstore/session"
	"github.com/rpgjournals/credstore/token"
)

// BackendKind names the storage variant a Store was built on.
type BackendKind = stores.Kind

const (
	BackendRedis  = stores.KindRedis
	BackendSQL    = stores.KindSQL
	BackendMemory = stores.KindMemory
)

// Capabilities describes the backend chosen at Build. An operator should
// alert on Durable == false in production: the memory fallback loses every
// session on restart and is invisible to other instances.
type Capabilities struct {
	Backend BackendKind
	Durable bool
	Shared  bool
}

// Store is the credential store facade: sessions, verification codes,
// rate-limit markers and verified-email markers over exactly one backend.
//
// Absence (never set, deleted, expired, corrupt) is reported as nil or false
// with a nil error. Only backend failures return errors, and they wrap
// ErrBackendUnavailable. Store is safe for concurrent use.
type Store struct {
	adapter stores.Adapter
	tokens  *token.Generator
	config  Config
	metrics *Metrics
	logger  logrus.FieldLogger
}

// Capabilities reports the backend selected at construction.
func (s *Store) Capabilities() Capabilities {
	kind := s.adapter.Kind()
	return Capabilities{
		Backend: kind,
		Durable: kind.Durable(),
		Shared:  kind.Durable(),
	}
}

// Ping checks backend connectivity. The memory backend always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.adapter.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

/*
====================================
SESSIONS
====================================
*/

// CreateSession stores data under a fresh 256-bit token and returns the token.
// A payload without a user id is rejected with ErrInvalidInput on every
// backend, since it could never be read back.
func (s *Store) CreateSession(ctx context.Context, data session.Data) (string, error) {
	if data.UserID == "" {
		return "", ErrInvalidInput
	}
	tok, err := s.tokens.Token()
	if err != nil {
		return "", err
	}
	payload, err := session.Encode(&data)
	if err != nil {
		return "", err
	}

	if err := s.put(ctx, stores.SpaceSession, tok, payload, s.config.Session.TTL); err != nil {
		return "", err
	}
	s.metrics.Inc(MetricSessionCreated)
	return tok, nil
}

// GetSession returns the session for token, or nil when it is unknown,
// expired or its stored payload cannot be decoded.
func (s *Store) GetSession(ctx context.Context, token string) (*session.Data, error) {
	if token == "" {
		return nil, nil
	}

	payload, ok, err := s.get(ctx, stores.SpaceSession, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.Inc(MetricSessionLookupMiss)
		return nil, nil
	}

	data, err := session.Decode(payload)
	if err != nil {
		s.metrics.Inc(MetricSessionCorrupt)
		s.logger.WithField("backend", s.adapter.Kind()).Warn("discarding corrupt session payload")
		return nil, nil
	}
	return data, nil
}

// DestroySession deletes the session for token. Unknown tokens are not an error.
func (s *Store) DestroySession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.del(ctx, stores.SpaceSession, token); err != nil {
		return err
	}
	s.metrics.Inc(MetricSessionDestroyed)
	return nil
}

/*
====================================
VERIFICATION CODES
====================================
*/

// StoreVerificationCode replaces any live code for email.
func (s *Store) StoreVerificationCode(ctx context.Context, email, code string) error {
	return s.put(ctx, stores.SpaceCode, credential.NormalizeEmail(email), code, s.config.Verification.CodeTTL)
}

// VerifyCode consumes the live code for email if it equals code. A failed
// match leaves the code in place.
func (s *Store) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	return s.consume(ctx, stores.SpaceCode, credential.NormalizeEmail(email), code)
}

/*
====================================
RATE-LIMIT MARKERS
====================================
*/

func (s *Store) WasRecentlyRateLimited(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.get(ctx, stores.SpaceRateLimit, key)
	return ok, err
}

// SetRateLimit marks key as limited for ttl. ttl <= 0 clears it.
func (s *Store) SetRateLimit(ctx context.Context, key string, ttl time.Duration) error {
	return s.put(ctx, stores.SpaceRateLimit, key, "1", ttl)
}

func (s *Store) ClearRateLimit(ctx context.Context, key string) error {
	return s.del(ctx, stores.SpaceRateLimit, key)
}

/*
====================================
VERIFIED-EMAIL MARKERS
====================================
*/

func (s *Store) MarkEmailVerified(ctx context.Context, email string) error {
	return s.put(ctx, stores.SpaceVerified, credential.NormalizeEmail(email), "1", s.config.Verification.VerifiedTTL)
}

func (s *Store) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	_, ok, err := s.get(ctx, stores.SpaceVerified, credential.NormalizeEmail(email))
	return ok, err
}

func (s *Store) ClearVerifiedEmail(ctx context.Context, email string) error {
	return s.del(ctx, stores.SpaceVerified, credential.NormalizeEmail(email))
}

// GenerateToken returns a 64-character hex token from the configured source.
func (s *Store) GenerateToken() (string, error) { return s.tokens.Token() }

// GenerateCode returns a 6-digit code from the configured source.
func (s *Store) GenerateCode() (string, error) { return s.tokens.Code() }

/*
====================================
ADAPTER CALLS
====================================
*/

func (s *Store) put(ctx context.Context, space stores.Space, key, value string, ttl time.Duration) error {
	start := time.Now()
	err := s.adapter.Put(ctx, space, key, value, ttl)
	return s.observe(start, space, "put", err)
}

func (s *Store) get(ctx context.Context, space stores.Space, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := s.adapter.Get(ctx, space, key)
	return v, ok, s.observe(start, space, "get", err)
}

func (s *Store) del(ctx context.Context, space stores.Space, key string) error {
	start := time.Now()
	err := s.adapter.Delete(ctx, space, key)
	return s.observe(start, space, "delete", err)
}

func (s *Store) consume(ctx context.Context, space stores.Space, key, expected string) (bool, error) {
	start := time.Now()
	ok, err := s.adapter.ConsumeIfMatch(ctx, space, key, expected)
	return ok, s.observe(start, space, "consume", err)
}

func (s *Store) observe(start time.Time, space stores.Space, op string, err error) error {
	s.metrics.Observe(MetricStoreLatency, time.Since(start))
	if err != nil {
		s.metrics.Inc(MetricBackendError)
		s.logger.WithFields(logrus.Fields{
			"backend": s.adapter.Kind(),
			"space":   space.String(),
			"op":      op,
		}).WithError(err).Error("store backend call failed")
	}
	return err
}
