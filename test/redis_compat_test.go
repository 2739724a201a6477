package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgjournals/credstore"
)

func newRedisEngine(t *testing.T, prefix string) (*credstore.Engine, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := credstore.DefaultConfig()
	cfg.Store.RedisPrefix = prefix
	engine, err := credstore.New().WithConfig(cfg).WithRedis(rdb).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, mr, rdb
}

// Existing deployments read these keys directly; the layout is part of the
// contract.
func TestRedisKeyLayout(t *testing.T) {
	engine, mr, _ := newRedisEngine(t, "cs:")
	ctx := context.Background()
	s := engine.Store()

	tok, err := s.CreateSession(ctx, credstore.SessionData{UserID: "u1", Email: "a@x.com", Role: "author"})
	require.NoError(t, err)
	require.NoError(t, s.StoreVerificationCode(ctx, "A@x.com", "123456"))
	require.NoError(t, s.SetRateLimit(ctx, "send_code:email:a@x.com", time.Minute))
	require.NoError(t, s.MarkEmailVerified(ctx, "a@x.com"))

	assert.True(t, mr.Exists("cs:session:"+tok))
	assert.Equal(t, 7*24*time.Hour, mr.TTL("cs:session:"+tok))

	code, err := mr.Get("cs:verify:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
	assert.Equal(t, 10*time.Minute, mr.TTL("cs:verify:a@x.com"))

	marker, err := mr.Get("cs:ratelimit:send_code:email:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "1", marker)
	assert.Equal(t, time.Minute, mr.TTL("cs:ratelimit:send_code:email:a@x.com"))

	assert.True(t, mr.Exists("cs:verified:a@x.com"))
}

func TestRedisSessionPayloadIsJSON(t *testing.T) {
	engine, mr, _ := newRedisEngine(t, "")
	ctx := context.Background()

	journal := int64(3)
	tok, err := engine.Store().CreateSession(ctx, credstore.SessionData{
		UserID: "u9", Email: "r@x.com", Name: "Rev", Role: "reviewer", JournalID: &journal,
	})
	require.NoError(t, err)

	raw, err := mr.Get("session:" + tok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u9","email":"r@x.com","name":"Rev","role":"reviewer","journalId":3}`, raw)
}

func TestRedisCorruptSessionIsAbsent(t *testing.T) {
	engine, mr, _ := newRedisEngine(t, "")
	require.NoError(t, mr.Set("session:abc", "{not json"))

	data, err := engine.Store().GetSession(context.Background(), "abc")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisOutageIsReported(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	engine, err := credstore.New().WithRedis(rdb).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	mr.Close()

	_, err = engine.Store().GetSession(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, credstore.ErrBackendUnavailable), "got %v", err)

	// The store never switches backend after a failure.
	assert.Equal(t, credstore.BackendRedis, engine.Store().Capabilities().Backend)
}
