package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rpgjournals/credstore/credential"
	"github.com/rpgjournals/credstore/internal/audit"
	"github.com/rpgjournals/credstore/internal/flows"
	"github.com/rpgjournals/credstore/internal/limiters"
	"github.com/rpgjournals/credstore/internal/stores"
	"github.com/rpgjournals/credstore/password"
	"github.com/rpgjournals/credstore/session"
	"github.com/rpgjournals/credstore/token"
)

// Builder collects backend handles and options, then selects exactly one
// storage backend in Build.
//
// A Builder is single-use: the second Build returns ErrBuilderUsed.
type Builder struct {
	config Config

	redis  redis.UniversalClient
	db     *sql.DB
	memory *stores.Memory

	credentials credential.Repository
	mailer      Mailer
	auditSink   AuditSink
	logger      logrus.FieldLogger
	clock       func() time.Time
	random      io.Reader

	built bool
}

// New returns a Builder with DefaultConfig and no backend handles.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies a Redis handle. It takes precedence over every other
// backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDB supplies a relational handle, used when no Redis handle is present.
// The handle also backs the credential repository unless WithCredentials is
// given.
func (b *Builder) WithDB(db *sql.DB) *Builder {
	b.db = db
	return b
}

// WithMemory supplies the in-process fallback. Without it Build constructs a
// fresh one when no other backend is configured.
func (b *Builder) WithMemory(m *stores.Memory) *Builder {
	b.memory = m
	return b
}

func (b *Builder) WithCredentials(repo credential.Repository) *Builder {
	b.credentials = repo
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides time.Now for expiry decisions of the SQL and memory
// backends and for timestamps the flows record.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithRandom overrides crypto/rand as the source for tokens and codes.
func (b *Builder) WithRandom(r io.Reader) *Builder {
	b.random = r
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, selects the backend (Redis, then SQL,
// then memory) and wires the Engine. The choice is fixed for the Engine's
// lifetime.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- BACKEND --------
	// The database also backs credentials when Redis holds the short-lived
	// records, so the schema is applied whenever a db is supplied.
	if b.db != nil && cfg.Store.AutoMigrate {
		if err := stores.Migrate(context.Background(), b.db, cfg.Store.SQLDialect, logger); err != nil {
			return nil, fmt.Errorf("%w: migrate: %v", ErrBackendUnavailable, err)
		}
	}

	adapter, err := b.selectAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo := b.credentials
	if repo == nil {
		if b.db != nil {
			repo = stores.NewSQLCredentials(b.db, stores.Clock(clock))
		} else {
			logger.Warn("no credential repository configured; accounts are held in memory")
			repo = stores.NewMemoryCredentials(stores.Clock(clock))
		}
	}

	metrics := NewMetrics(cfg.Metrics)
	store := &Store{
		adapter: adapter,
		tokens:  token.New(b.random),
		config:  cfg,
		metrics: metrics,
		logger:  logger,
	}

	// -------- PASSWORDS --------
	hasher, err := password.NewPBKDF2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		store:       store,
		sessions:    session.NewManager(store, cfg.Session.TTL),
		credentials: repo,
		hasher:      hasher,
		mailer:      b.mailer,
		metrics:     metrics,
		logger:      logger,
		clock:       clock,
	}

	engine.sendLimiter = limiters.NewCooldownLimiter(store, limiters.CooldownConfig{
		Operation:        "send-code",
		Cooldown:         cfg.Verification.ResendCooldown,
		EnableIPThrottle: cfg.Verification.EnableIPThrottle,
	})
	engine.resetLimiter = limiters.NewCooldownLimiter(store, limiters.CooldownConfig{
		Operation:        "reset",
		Cooldown:         cfg.PasswordReset.RequestCooldown,
		EnableIPThrottle: cfg.PasswordReset.EnableIPThrottle,
	})
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop:     func() { metrics.Inc(MetricAuditDropped) },
	}, b.auditSink)
	engine.flowDeps = engine.buildFlowDeps(dummyHash)

	b.built = true

	return engine, nil
}

func (b *Builder) selectAdapter(cfg Config, logger logrus.FieldLogger) (stores.Adapter, error) {
	switch {
	case b.redis != nil:
		logger.WithField("backend", stores.KindRedis).Info("credential store backend selected")
		return stores.NewRedis(b.redis, cfg.Store.RedisPrefix), nil

	case b.db != nil:
		logger.WithField("backend", stores.KindSQL).Info("credential store backend selected")
		return stores.NewSQL(b.db, stores.Clock(b.clock)), nil

	default:
		mem := b.memory
		if mem == nil {
			mem = stores.NewMemory(stores.Clock(b.clock))
		}
		logger.WithField("backend", stores.KindMemory).
			Warn("no durable backend configured; credential state is per-process and lost on restart")
		return mem, nil
	}
}

func (e *Engine) buildFlowDeps(dummyHash string) flows.Deps {
	hooks := flows.Hooks{
		MetricInc:     func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
		Logger:        e.logger,
	}
	newID := func() string { return uuid.NewString() }

	return flows.Deps{
		Verification: flows.VerificationDeps{
			Codes:               e.store,
			GenerateCode:        e.store.GenerateCode,
			AcquireSendSlot:     acquireFunc(e.sendLimiter),
			Mailer:              e.mailer,
			ClientIPFromContext: clientIPFromContext,
			Hooks:               hooks,
			Metrics: flows.VerificationMetrics{
				CodeIssued:   int(MetricCodeIssued),
				CodeVerified: int(MetricCodeVerified),
				CodeRejected: int(MetricCodeRejected),
			},
			Events: flows.VerificationEvents{
				CodeRequest: auditEventCodeRequest,
				CodeConfirm: auditEventCodeConfirm,
			},
		},
		Account: flows.AccountDeps{
			Credentials: e.credentials,
			Verified:    e.store,
			Hasher:      e.hasher,
			Sessions:    e.sessions,
			NewID:       newID,
			Now:         e.now,
			Hooks:       hooks,
			Metrics: flows.AccountMetrics{
				RegisterSuccess:   int(MetricRegisterSuccess),
				RegisterDuplicate: int(MetricRegisterDuplicate),
				RegisterFailure:   int(MetricRegisterFailure),
			},
			Events: flows.AccountEvents{Register: auditEventRegister},
		},
		Login: flows.LoginDeps{
			Credentials: e.credentials,
			Hasher:      e.hasher,
			Sessions:    e.sessions,
			DummyHash:   dummyHash,
			Hooks:       hooks,
			Metrics: flows.LoginMetrics{
				LoginSuccess: int(MetricLoginSuccess),
				LoginFailure: int(MetricLoginFailure),
			},
			Events: flows.LoginEvents{Login: auditEventLogin},
		},
		Logout: flows.LogoutDeps{
			Sessions: e.sessions,
			Hooks:    hooks,
			Metrics:  flows.LogoutMetrics{Logout: int(MetricLogout)},
			Events:   flows.LogoutEvents{Logout: auditEventLogout},
		},
		PasswordReset: flows.PasswordResetDeps{
			Credentials:         e.credentials,
			Hasher:              e.hasher,
			GenerateToken:       e.store.GenerateToken,
			NewID:               newID,
			Now:                 e.now,
			TTL:                 e.config.PasswordReset.TokenTTL,
			Mailer:              e.mailer,
			AcquireRequestSlot:  acquireFunc(e.resetLimiter),
			ClientIPFromContext: clientIPFromContext,
			Hooks:               hooks,
			Metrics: flows.PasswordResetMetrics{
				ResetRequest:        int(MetricPasswordResetRequest),
				ResetConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
				ResetConfirmFailure: int(MetricPasswordResetConfirmFailure),
			},
			Events: flows.PasswordResetEvents{
				ResetRequest: auditEventPasswordResetReq,
				ResetConfirm: auditEventPasswordResetConf,
			},
		},
	}
}

// acquireFunc adapts a cooldown limiter to the flow slot contract.
func acquireFunc(l *limiters.CooldownLimiter) flows.AcquireFunc {
	return func(ctx context.Context, identifier, ip string) (func(context.Context) error, error) {
		slot, err := l.Acquire(ctx, identifier, ip)
		if err != nil {
			if errors.Is(err, limiters.ErrRateLimited) {
				return nil, flows.ErrRateLimited
			}
			return nil, err
		}
		return slot.Release, nil
	}
}
