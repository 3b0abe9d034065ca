package infra

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tnqbao/gau-media-gateway/config"
)

type RedisClient struct {
	Client *redis.Client
}

func InitRedisClient(cfg *config.EnvConfig) *RedisClient {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisHost + ":" + cfg.Redis.RedisPort,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}

	log.Println("Connected to Redis:", cfg.Redis.RedisPort+" on "+cfg.Redis.RedisHost)

	return &RedisClient{Client: client}
}

func SignedURLKey(bucket, path string, ttl time.Duration) string {
	return fmt.Sprintf("media:signed:%s:%s:%d", bucket, path, int64(ttl.Seconds()))
}

// GetSignedURL returns a cached read URL. A miss is reported as ok=false with no error.
func (r *RedisClient) GetSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, bool, error) {
	url, err := r.Client.Get(ctx, SignedURLKey(bucket, path, ttl)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read signed url cache: %w", err)
	}
	return url, true, nil
}

// SetSignedURL stores a URL signed for ttl. The entry lives for keepFor, which
// must be shorter than ttl so a hit still has the rest of its validity.
func (r *RedisClient) SetSignedURL(ctx context.Context, bucket, path string, ttl, keepFor time.Duration, url string) error {
	if keepFor <= 0 || keepFor >= ttl {
		return nil
	}
	if err := r.Client.Set(ctx, SignedURLKey(bucket, path, ttl), url, keepFor).Err(); err != nil {
		return fmt.Errorf("failed to write signed url cache: %w", err)
	}
	return nil
}

// EvictObject drops every cached URL for an object, whatever its ttl.
func (r *RedisClient) EvictObject(ctx context.Context, bucket, path string) error {
	iter := r.Client.Scan(ctx, 0, signedURLPattern(bucket, path), 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan signed url cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.Client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to evict signed url cache: %w", err)
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// signedURLPattern matches the cached URLs of exactly one object. Paths come
// from clients, so glob metacharacters in them are matched literally.
func signedURLPattern(bucket, path string) string {
	return "media:signed:" + globEscaper.Replace(bucket) + ":" + globEscaper.Replace(path) + ":*"
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
