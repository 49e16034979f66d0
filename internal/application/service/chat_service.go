package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/repository"
	domainservice "github.com/damon-houk/bizbuddy-sales-insights/internal/domain/service"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/cache"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/middleware"
)

// SnapshotProvider returns the snapshot the agent should answer from
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*entity.Snapshot, error)
}

// ChatService runs question-answer turns against the current snapshot and
// keeps each conversation's transcript.
type ChatService struct {
	snapshots     SnapshotProvider
	agent         domainservice.Agent
	answers       cache.AnswerCache
	answerTTL     time.Duration
	conversations repository.ConversationRepository
	logger        logger.Logger
	now           func() time.Time

	// turns serializes read-modify-write of a single conversation
	turns conversationLocks
}

type conversationLock struct {
	sync.Mutex
	refs int
}

// conversationLocks hands out one mutex per conversation ID and forgets it
// once no caller holds or waits on it.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*conversationLock
}

func (l *conversationLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*conversationLock)
	}
	cl, ok := l.locks[id]
	if !ok {
		cl = &conversationLock{}
		l.locks[id] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.Lock()
	return func() {
		cl.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// NewChatService creates a new chat service. A nil answer cache disables answer reuse.
func NewChatService(snapshots SnapshotProvider, agent domainservice.Agent, answers cache.AnswerCache, answerTTL time.Duration, conversations repository.ConversationRepository, log logger.Logger) *ChatService {
	if answers == nil {
		answers = cache.NoopAnswerCache{}
	}

	return &ChatService{
		snapshots:     snapshots,
		agent:         agent,
		answers:       answers,
		answerTTL:     answerTTL,
		conversations: conversations,
		logger:        logger.OrDefault(log),
		now:           time.Now,
	}
}

// Start opens and stores an empty conversation
func (s *ChatService) Start(ctx context.Context) (*entity.Conversation, error) {
	at := s.now()
	conv := entity.Conversation{
		ID:        uuid.New().String(),
		CreatedAt: at,
		UpdatedAt: at,
	}

	if err := s.conversations.Store(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}

	s.logger.Info("Conversation started", map[string]interface{}{
		"request_id":      middleware.GetRequestID(ctx),
		"conversation_id": conv.ID,
	})
	return &conv, nil
}

// Get retrieves a conversation by ID
func (s *ChatService) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	return s.conversations.FindByID(ctx, id)
}

// Delete removes a conversation
func (s *ChatService) Delete(ctx context.Context, id string) error {
	return s.conversations.Delete(ctx, id)
}

// Clear empties a conversation's transcript and keeps its ID
func (s *ChatService) Clear(ctx context.Context, id string) (*entity.Conversation, error) {
	unlock := s.turns.lock(id)
	defer unlock()

	conv, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cleared := conv.Cleared(s.now())
	if err := s.conversations.Store(ctx, cleared); err != nil {
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}
	return &cleared, nil
}

// Reply runs one chat turn. The user's message is appended before the agent
// is asked; when the agent fails, the returned conversation still carries the
// question and the error is an *entity.AgentError.
func (s *ChatService) Reply(ctx context.Context, conv entity.Conversation, question string) (entity.Conversation, error) {
	if err := entity.ValidateQuestion(question); err != nil {
		return conv, err
	}
	question = strings.TrimSpace(question)

	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return conv, err
	}

	history := conv.Messages
	key := cache.AnswerKey(snap.ID, history, question)
	conv = conv.Append(entity.ChatMessage{Role: entity.RoleUser, Content: question, At: s.now()})

	fields := map[string]interface{}{
		"request_id":      middleware.GetRequestID(ctx),
		"conversation_id": conv.ID,
		"snapshot_id":     snap.ID,
	}

	answer, hit, err := s.answers.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Answer cache read failed", merge(fields, map[string]interface{}{"error": err}))
	}
	if hit {
		s.logger.Debug("Answer served from cache", fields)
		return conv.Append(entity.ChatMessage{Role: entity.RoleAssistant, Content: answer, At: s.now()}), nil
	}

	answer, err = s.agent.Ask(ctx, snap.Records, history, question)
	if err != nil {
		s.logger.Error("Agent failed to answer", merge(fields, map[string]interface{}{"error": err}))

		var agentErr *entity.AgentError
		if !errors.As(err, &agentErr) {
			err = &entity.AgentError{Err: err}
		}
		return conv, err
	}

	if err := s.answers.Set(ctx, key, answer, s.answerTTL); err != nil {
		s.logger.Warn("Answer cache write failed", merge(fields, map[string]interface{}{"error": err}))
	}
	return conv.Append(entity.ChatMessage{Role: entity.RoleAssistant, Content: answer, At: s.now()}), nil
}

// Ask runs one turn on a stored conversation and stores the result. The
// question is kept in the transcript even when the agent fails. Turns on the
// same conversation run one at a time.
func (s *ChatService) Ask(ctx context.Context, id string, question string) (*entity.Conversation, error) {
	unlock := s.turns.lock(id)
	defer unlock()

	conv, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, turnErr := s.Reply(ctx, *conv, question)

	var agentErr *entity.AgentError
	if turnErr != nil && !errors.As(turnErr, &agentErr) {
		return nil, turnErr
	}

	if err := s.conversations.Store(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}
	return &updated, turnErr
}

func merge(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
