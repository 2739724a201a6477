package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisKeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedis(rdb, "rj:")
	ctx := context.Background()

	_ = s.Put(ctx, SpaceSession, "t", `{"userId":"u"}`, time.Minute)
	_ = s.Put(ctx, SpaceCode, "a@x.com", "123456", time.Minute)
	_ = s.Put(ctx, SpaceRateLimit, "k", "1", time.Minute)
	_ = s.Put(ctx, SpaceVerified, "a@x.com", "1", time.Minute)

	for _, key := range []string{"rj:session:t", "rj:verify:a@x.com", "rj:ratelimit:k", "rj:verified:a@x.com"} {
		if !mr.Exists(key) {
			t.Fatalf("expected key %s", key)
		}
	}
	if ttl := mr.TTL("rj:verify:a@x.com"); ttl != time.Minute {
		t.Fatalf("expected native ttl of 1m, got %v", ttl)
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()

	s := NewRedis(rdb, "")
	mr.Close()

	ctx := context.Background()
	if _, _, err := s.Get(ctx, SpaceSession, "t"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Get, got %v", err)
	}
	if _, err := s.ConsumeIfMatch(ctx, SpaceCode, "a", "1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from ConsumeIfMatch, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Ping, got %v", err)
	}
}
