package entity

import (
	"fmt"
	"strings"
	"time"
)

// MaxQuestionLength bounds the size of a single chat question
const MaxQuestionLength = 2000

// Role identifies the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a conversation transcript
type ChatMessage struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Conversation is the chat state owned by the caller and passed into each turn
type Conversation struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []ChatMessage `json:"messages"`
}

// ValidateQuestion ensures the question can be sent to the agent
func ValidateQuestion(question string) error {
	q := strings.TrimSpace(question)
	if q == "" {
		return fmt.Errorf("%w: question must not be empty", ErrInvalidQuestion)
	}
	if len([]rune(q)) > MaxQuestionLength {
		return fmt.Errorf("%w: question must not exceed %d characters", ErrInvalidQuestion, MaxQuestionLength)
	}
	return nil
}

// Append returns a copy of the conversation with msg added
func (c Conversation) Append(msg ChatMessage) Conversation {
	messages := make([]ChatMessage, len(c.Messages), len(c.Messages)+1)
	copy(messages, c.Messages)
	c.Messages = append(messages, msg)
	c.UpdatedAt = msg.At
	return c
}

// Cleared returns the conversation with its transcript removed
func (c Conversation) Cleared(at time.Time) Conversation {
	c.Messages = nil
	c.UpdatedAt = at
	return c
}
