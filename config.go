package credstore

import (
	"errors"
	"time"

	"github.com/rpgjournals/credstore/password"
	"github.com/rpgjournals/credstore/session"
)

// Config holds every tunable of the credential store and its flows. Start
// from DefaultConfig and override fields; Build validates the result.
type Config struct {
	Session       SessionConfig
	Verification  VerificationConfig
	PasswordReset PasswordResetConfig
	Password      PasswordConfig
	Store         StoreConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	// TTL is the absolute session lifetime, used both for the stored record
	// and the cookie Max-Age.
	TTL time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

type VerificationConfig struct {
	CodeTTL     time.Duration
	VerifiedTTL time.Duration
	// ResendCooldown gates SendVerificationCode per email (and per IP when
	// EnableIPThrottle is set).
	ResendCooldown   time.Duration
	EnableIPThrottle bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

type PasswordResetConfig struct {
	TokenTTL         time.Duration
	RequestCooldown  time.Duration
	EnableIPThrottle bool
}

/*
====================================
STORE CONFIG
====================================
*/

type StoreConfig struct {
	// RedisPrefix is prepended to every Redis key.
	RedisPrefix string
	// SQLDialect selects the migration dialect for the relational backend:
	// "postgres" or "sqlite3".
	SQLDialect string
	// AutoMigrate applies the embedded schema during Build.
	AutoMigrate bool
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		Session: SessionConfig{
			TTL: session.TTL,
		},
		Verification: VerificationConfig{
			CodeTTL:          10 * time.Minute,
			VerifiedTTL:      10 * time.Minute,
			ResendCooldown:   60 * time.Second,
			EnableIPThrottle: true,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:         30 * time.Minute,
			RequestCooldown:  60 * time.Second,
			EnableIPThrottle: false,
		},
		Password: PasswordConfig{
			Iterations: pw.Iterations,
			SaltLength: pw.SaltLength,
			KeyLength:  pw.KeyLength,
		},
		Store: StoreConfig{
			SQLDialect: "postgres",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.TTL > session.TTL {
		return errors.New("Session TTL must not exceed the cookie lifetime")
	}

	if c.Verification.CodeTTL <= 0 {
		return errors.New("Verification CodeTTL must be > 0")
	}
	if c.Verification.VerifiedTTL <= 0 {
		return errors.New("Verification VerifiedTTL must be > 0")
	}
	if c.Verification.ResendCooldown < 0 {
		return errors.New("Verification ResendCooldown must be >= 0")
	}

	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.RequestCooldown < 0 {
		return errors.New("PasswordReset RequestCooldown must be >= 0")
	}

	if _, err := password.NewPBKDF2(c.passwordConfig()); err != nil {
		return err
	}

	switch c.Store.SQLDialect {
	case "postgres", "pgx", "sqlite3", "sqlite":
	default:
		return errors.New("Store SQLDialect must be postgres or sqlite3")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Iterations: c.Password.Iterations,
		SaltLength: c.Password.SaltLength,
		KeyLength:  c.Password.KeyLength,
	}
}
