package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeIfMatchLua atomically performs GET→compare→DEL.
// KEYS[1] = record key
// ARGV[1] = expected value
//
// Returns 1 when the record matched and was deleted, 0 otherwise.
var consumeIfMatchLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return 0
end
if data ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// Redis is the durable key-value variant. Expiry is native per-key TTL.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis store. prefix is prepended verbatim to every key.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Redis) Kind() Kind { return KindRedis }

// Key returns the physical key for (space, key).
func (s *Redis) Key(space Space, key string) string {
	return s.prefix + space.String() + ":" + key
}

func (s *Redis) Put(ctx context.Context, space Space, key, value string, ttl time.Duration) error {
	if !space.valid() {
		return ErrUnknownSpace
	}
	if ttl <= 0 {
		return s.Delete(ctx, space, key)
	}

	if err := s.redis.Set(ctx, s.Key(space, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, space Space, key string) (string, bool, error) {
	if !space.valid() {
		return "", false, ErrUnknownSpace
	}

	v, err := s.redis.Get(ctx, s.Key(space, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, true, nil
}

func (s *Redis) Delete(ctx context.Context, space Space, key string) error {
	if !space.valid() {
		return ErrUnknownSpace
	}
	if err := s.redis.Del(ctx, s.Key(space, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Redis) ConsumeIfMatch(ctx context.Context, space Space, key, expected string) (bool, error) {
	if !space.valid() {
		return false, ErrUnknownSpace
	}

	n, err := consumeIfMatchLua.Run(ctx, s.redis, []string{s.Key(space, key)}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}

// Ping checks connectivity.
func (s *Redis) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
