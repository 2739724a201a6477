package test

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rpgjournals/credstore"
)

// backend builds an Engine on one storage variant and knows how to move that
// variant's notion of time forward.
type backend struct {
	name  string
	setup func(t *testing.T, b *credstore.Builder) (advance func(time.Duration))
}

// backends lists every storage variant. The Redis case also carries a SQLite
// database, the usual split of short-lived records and accounts.
func backends() []backend {
	return []backend{
		{
			name: "redis",
			setup: func(t *testing.T, b *credstore.Builder) func(time.Duration) {
				mr := miniredis.RunT(t)
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = rdb.Close() })
				b.WithRedis(rdb).WithDB(openSQLite(t))
				return mr.FastForward
			},
		},
		{
			name: "sql",
			setup: func(t *testing.T, b *credstore.Builder) func(time.Duration) {
				b.WithDB(openSQLite(t))
				return nil
			},
		},
		{
			name: "memory",
			setup: func(t *testing.T, b *credstore.Builder) func(time.Duration) {
				return nil
			},
		},
	}
}

type harness struct {
	*credstore.Engine
	mailer  *captureMailer
	clock   *fakeClock
	advance func(time.Duration)
}

type options struct {
	random    io.Reader
	configure func(*credstore.Config)
}

func newHarness(t *testing.T, be backend, opts options) *harness {
	t.Helper()

	cfg := credstore.DefaultConfig()
	cfg.Store.SQLDialect = "sqlite3"
	cfg.Store.AutoMigrate = true
	cfg.Metrics.Enabled = true
	if opts.configure != nil {
		opts.configure(&cfg)
	}

	clock := newFakeClock()
	mailer := newCaptureMailer()
	b := credstore.New().
		WithConfig(cfg).
		WithClock(clock.Now).
		WithMailer(mailer)
	if opts.random != nil {
		b.WithRandom(opts.random)
	}

	native := be.setup(t, b)

	engine, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &harness{
		Engine: engine,
		mailer: mailer,
		clock:  clock,
		advance: func(d time.Duration) {
			clock.Advance(d)
			if native != nil {
				native(d)
			}
		},
	}
}

// forEachBackend runs fn once per storage variant.
func forEachBackend(t *testing.T, opts options, fn func(t *testing.T, h *harness)) {
	for _, be := range backends() {
		t.Run(be.name, func(t *testing.T) {
			fn(t, newHarness(t, be, opts))
		})
	}
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fixedCode returns a random source whose first draw yields code and which
// is cryptographically random afterwards.
func fixedCode(draw uint32) io.Reader {
	prefix := []byte{byte(draw >> 24), byte(draw >> 16), byte(draw >> 8), byte(draw)}
	return io.MultiReader(bytes.NewReader(prefix), rand.Reader)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type captureMailer struct {
	mu     sync.Mutex
	codes  map[string]string
	resets map[string]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{codes: map[string]string{}, resets: map[string]string{}}
}

func (m *captureMailer) SendVerificationCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, rawToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[email] = rawToken
	return nil
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func (m *captureMailer) reset(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[email]
}

func cookieHeader(setCookie string) string {
	value, _, _ := strings.Cut(setCookie, ";")
	return value
}
