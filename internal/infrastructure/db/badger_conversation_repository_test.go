package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerConversationRepository(t *testing.T) {
	repo := NewBadgerConversationRepository(openTestDB(t))
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	conv := entity.Conversation{ID: "c1", CreatedAt: at, UpdatedAt: at}
	conv = conv.Append(entity.ChatMessage{Role: entity.RoleUser, Content: "Top product?", At: at})
	conv = conv.Append(entity.ChatMessage{Role: entity.RoleAssistant, Content: "Aspirin", At: at.Add(time.Second)})

	t.Run("Store and find", func(t *testing.T) {
		require.NoError(t, repo.Store(ctx, conv))

		found, err := repo.FindByID(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, conv.ID, found.ID)
		require.Len(t, found.Messages, 2)
		assert.Equal(t, entity.RoleAssistant, found.Messages[1].Role)
		assert.True(t, found.UpdatedAt.Equal(at.Add(time.Second)))
	})

	t.Run("Store replaces", func(t *testing.T) {
		require.NoError(t, repo.Store(ctx, conv.Cleared(at.Add(time.Minute))))

		found, err := repo.FindByID(ctx, "c1")
		require.NoError(t, err)
		assert.Empty(t, found.Messages)
	})

	t.Run("Unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing")
		assert.True(t, errors.Is(err, entity.ErrConversationNotFound))

		err = repo.Delete(ctx, "missing")
		assert.True(t, errors.Is(err, entity.ErrConversationNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "c1"))
		_, err := repo.FindByID(ctx, "c1")
		assert.True(t, errors.Is(err, entity.ErrConversationNotFound))
	})

	t.Run("Empty id", func(t *testing.T) {
		assert.Error(t, repo.Store(ctx, entity.Conversation{}))
	})
}
