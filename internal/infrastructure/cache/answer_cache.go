package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

const answerKeyPrefix = "bizbuddy:answer:"

// AnswerCache stores agent answers so repeated questions skip the model call
type AnswerCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, answer string, ttl time.Duration) error
}

// AnswerKey derives a cache key from everything that determines an answer:
// the snapshot, the prior turns and the question
func AnswerKey(snapshotID string, history []entity.ChatMessage, question string) string {
	h := sha256.New()
	h.Write([]byte(snapshotID))
	h.Write([]byte{0})
	for _, m := range history {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	h.Write([]byte(question))
	return answerKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// NoopAnswerCache never stores anything
type NoopAnswerCache struct{}

func (NoopAnswerCache) Get(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

func (NoopAnswerCache) Set(_ context.Context, _ string, _ string, _ time.Duration) error {
	return nil
}

// RedisAnswerCache shares answers across server processes
type RedisAnswerCache struct {
	client *redis.Client
}

func NewRedisAnswerCache(addr string, password string, db int) *RedisAnswerCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisAnswerCache{client: client}
}

func (c *RedisAnswerCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisAnswerCache) Close() error {
	return c.client.Close()
}

func (c *RedisAnswerCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisAnswerCache) Set(ctx context.Context, key string, answer string, ttl time.Duration) error {
	if answer == "" {
		return nil
	}
	return c.client.Set(ctx, key, answer, ttl).Err()
}
