package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

const conversationPrefix = "conv:"

// OpenBadger opens (creating if needed) a BadgerDB at dir with Badger's own logging disabled
func OpenBadger(dir string) (*badger.DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// BadgerConversationRepository stores chat conversations in BadgerDB as JSON
type BadgerConversationRepository struct {
	db *badger.DB
}

// NewBadgerConversationRepository creates a new BadgerDB conversation repository
func NewBadgerConversationRepository(db *badger.DB) *BadgerConversationRepository {
	return &BadgerConversationRepository{db: db}
}

func conversationKey(id string) []byte {
	return []byte(conversationPrefix + id)
}

// Store saves a conversation, replacing any previous version
func (r *BadgerConversationRepository) Store(ctx context.Context, conv entity.Conversation) error {
	if conv.ID == "" {
		return errors.New("conversation id must not be empty")
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(conversationKey(conv.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store conversation: %w", err)
	}
	return nil
}

// FindByID retrieves a conversation. Unknown ids return entity.ErrConversationNotFound.
func (r *BadgerConversationRepository) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	var conv entity.Conversation

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", entity.ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversation: %w", err)
	}

	return &conv, nil
}

// Delete removes a conversation. Unknown ids return entity.ErrConversationNotFound.
func (r *BadgerConversationRepository) Delete(ctx context.Context, id string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(conversationKey(id)); err != nil {
			return err
		}
		return txn.Delete(conversationKey(id))
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", entity.ErrConversationNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}
