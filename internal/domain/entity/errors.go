package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConversationNotFound is returned when a conversation id is unknown
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrUnknownMetric is returned for a metric name the engine does not know
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnknownGroupKey is returned for a grouping attribute the engine does not know
	ErrUnknownGroupKey = errors.New("unknown group key")

	// ErrInvalidQuestion is returned for a chat question that cannot be sent to the agent
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrInvalidPolicy is returned for alert thresholds that contradict each other
	ErrInvalidPolicy = errors.New("invalid alert policy")
)

// SchemaError is a dataset-level failure: required columns are entirely absent
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// LoadError is a transport failure: the spreadsheet could not be fetched or read
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// AgentError is a failed question-answer exchange. It never invalidates the loaded data.
type AgentError struct {
	Err error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent failed to answer: %v", e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// CoercionWarning counts cells in one column that could not be converted and were nulled
type CoercionWarning struct {
	Column   string       `json:"column"`
	Type     SemanticType `json:"type"`
	Failures int          `json:"failures"`
}

// RowRejection records a source row excluded from the RecordSet
type RowRejection struct {
	Row     int      `json:"row"`
	Reasons []string `json:"reasons"`
}

// Reason joins all rejection reasons
func (r RowRejection) Reason() string {
	return strings.Join(r.Reasons, "; ")
}
