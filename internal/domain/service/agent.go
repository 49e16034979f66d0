package service

import (
	"context"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// Agent answers free-text questions about a record set
type Agent interface {
	// Ask returns an answer to question over records, given the prior turns.
	// Failures are *entity.AgentError.
	Ask(ctx context.Context, records entity.RecordSet, history []entity.ChatMessage, question string) (string, error)
}
