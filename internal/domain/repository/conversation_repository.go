package repository

import (
	"context"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// ConversationRepository defines the interface for chat transcript storage
type ConversationRepository interface {
	// Store saves a conversation, replacing any previous version
	Store(ctx context.Context, conv entity.Conversation) error

	// FindByID retrieves a conversation by its unique identifier
	FindByID(ctx context.Context, id string) (*entity.Conversation, error)

	// Delete removes a conversation
	Delete(ctx context.Context, id string) error
}
