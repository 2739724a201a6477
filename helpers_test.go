package credstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errMailDown = errors.New("smtp: connection refused")

type fakeMailer struct {
	mu     sync.Mutex
	codes  map[string]string
	resets map[string]string
	sent   int
	fail   bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		codes:  map[string]string{},
		resets: map[string]string{},
	}
}

func (m *fakeMailer) SendVerificationCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMailDown
	}
	m.codes[email] = code
	m.sent++
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, email, rawToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMailDown
	}
	m.resets[email] = rawToken
	m.sent++
	return nil
}

func (m *fakeMailer) setFail(v bool) {
	m.mu.Lock()
	m.fail = v
	m.mu.Unlock()
}

func (m *fakeMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func (m *fakeMailer) reset(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[email]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

type testEngine struct {
	*Engine
	mailer *fakeMailer
	clock  *testClock
}

// newTestEngine builds an Engine on the memory backend with a fake clock and
// mailer. configure may adjust the builder before Build.
func newTestEngine(t *testing.T, configure func(*Builder)) *testEngine {
	t.Helper()

	mailer := newFakeMailer()
	clock := newTestClock()
	b := New().
		WithMailer(mailer).
		WithClock(clock.Now).
		WithMetricsEnabled(true)
	if configure != nil {
		configure(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, mailer: mailer, clock: clock}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func (te *testEngine) verifyEmail(t *testing.T, email string) {
	t.Helper()

	ctx := context.Background()
	if err := te.SendVerificationCode(ctx, email); err != nil {
		t.Fatalf("SendVerificationCode(%s) failed: %v", email, err)
	}
	code := te.mailer.code(strings.ToLower(strings.TrimSpace(email)))
	ok, err := te.ConfirmVerificationCode(ctx, email, code)
	if err != nil || !ok {
		t.Fatalf("ConfirmVerificationCode(%s) = %v, %v", email, ok, err)
	}
}

func (te *testEngine) register(t *testing.T, email, pw string) *AuthResult {
	t.Helper()

	te.verifyEmail(t, email)
	res, err := te.Register(context.Background(), RegisterRequest{
		Email:           email,
		Name:            "Ada Author",
		Password:        pw,
		PasswordConfirm: pw,
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return res
}

func cookieHeader(setCookie string) string {
	value, _, _ := strings.Cut(setCookie, ";")
	return value
}
