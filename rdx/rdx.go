package rdx

import (
	"context"
	"fmt"
	"os"
	"time"

	"cropcart/globals"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

// Connect initializes the shared Redis client.
func Connect() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

// CacheKey builds the per-user cache key: cropcart-{collection}-{userId}.
func CacheKey(collection, userID string) string {
	return fmt.Sprintf("%s-%s-%s", globals.CachePrefix, collection, userID)
}

func RdxHset(hash, field, value string) error {
	return Conn.HSet(globals.Ctx, hash, field, value).Err()
}

func RdxHdel(hash, field string) (int64, error) {
	return Conn.HDel(globals.Ctx, hash, field).Result()
}

// Close shuts the client down during graceful shutdown.
func Close() error {
	if Conn == nil {
		return nil
	}
	return Conn.Close()
}

// Cache is the minimal key-value surface the per-user stores persist through.
// Backed by Redis in production, by an in-memory map in tests.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisCache adapts Conn to the Cache interface.
type RedisCache struct{}

func (RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := Conn.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return Conn.Set(ctx, key, value, ttl).Err()
}

func (RedisCache) Del(ctx context.Context, keys ...string) error {
	return Conn.Del(ctx, keys...).Err()
}
