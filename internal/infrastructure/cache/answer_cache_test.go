package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

func TestAnswerKey(t *testing.T) {
	history := []entity.ChatMessage{{Role: entity.RoleUser, Content: "Top product?"}, {Role: entity.RoleAssistant, Content: "Aspirin"}}

	key := AnswerKey("snap-1", history, "And by revenue?")
	assert.True(t, strings.HasPrefix(key, answerKeyPrefix))
	assert.Equal(t, key, AnswerKey("snap-1", history, "And by revenue?"))

	assert.NotEqual(t, key, AnswerKey("snap-2", history, "And by revenue?"), "a new snapshot invalidates answers")
	assert.NotEqual(t, key, AnswerKey("snap-1", history[:1], "And by revenue?"))
	assert.NotEqual(t, key, AnswerKey("snap-1", history, "And by units?"))

	// Field boundaries are part of the key
	assert.NotEqual(t,
		AnswerKey("ab", nil, "c"),
		AnswerKey("a", nil, "bc"))
}

func TestNoopAnswerCache(t *testing.T) {
	var c AnswerCache = NoopAnswerCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	_, ok, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAnswerCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping redis test in short mode")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	c := NewRedisAnswerCache(addr, os.Getenv("REDIS_PASSWORD"), 0)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	key := AnswerKey("test-"+time.Now().Format(time.RFC3339Nano), nil, "Top product?")

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, "Aspirin", time.Minute))
	answer, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Aspirin", answer)
}
