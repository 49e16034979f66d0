package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
)

func agentRecords(n int) entity.RecordSet {
	records := make([]entity.SalesRecord, n)
	for i := range records {
		records[i] = entity.SalesRecord{
			TransactionID: "T" + string(rune('A'+i)),
			Date:          time.Date(2025, 7, 1+i, 0, 0, 0, 0, time.UTC),
			Product:       "Aspirin",
			UnitsSold:     2,
			Revenue:       decimal.NewFromInt(20),
		}
	}
	return entity.NewRecordSet(records)
}

func TestOpenAIAgentAsk(t *testing.T) {
	t.Run("Sends dataset, history and question", func(t *testing.T) {
		var got chatRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Aspirin sold 6 units.  "}}]}`))
		}))
		defer server.Close()

		agent := NewOpenAIAgent(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL, MaxRows: 2, Logger: logger.NewNopLogger()})
		history := []entity.ChatMessage{
			{Role: entity.RoleUser, Content: "Hi"},
			{Role: entity.RoleAssistant, Content: "Hello"},
		}

		answer, err := agent.Ask(context.Background(), agentRecords(3), history, "How many units of Aspirin?")

		require.NoError(t, err)
		assert.Equal(t, "Aspirin sold 6 units.", answer)

		assert.Equal(t, "gpt-4o-mini", got.Model)
		require.Len(t, got.Messages, 4)
		assert.Equal(t, "system", got.Messages[0].Role)
		assert.Contains(t, got.Messages[0].Content, "Records: 3")
		assert.Contains(t, got.Messages[0].Content, "Total revenue: 60.00")
		assert.Contains(t, got.Messages[0].Content, "The first 2 of 3 records")
		assert.Contains(t, got.Messages[0].Content, "TA,2025-07-01")
		assert.False(t, strings.Contains(got.Messages[0].Content, "TC,"), "rows past the limit are not sent")
		assert.Equal(t, "assistant", got.Messages[2].Role)
		assert.Equal(t, "How many units of Aspirin?", got.Messages[3].Content)
	})

	t.Run("API error is an agent error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
		}))
		defer server.Close()

		agent := NewOpenAIAgent(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL, Logger: logger.NewNopLogger()})
		_, err := agent.Ask(context.Background(), agentRecords(1), nil, "Top product?")

		var agentErr *entity.AgentError
		require.True(t, errors.As(err, &agentErr))
		assert.Contains(t, err.Error(), "Rate limit reached")
	})

	t.Run("No choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		agent := NewOpenAIAgent(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL, Logger: logger.NewNopLogger()})
		_, err := agent.Ask(context.Background(), agentRecords(1), nil, "Top product?")

		var agentErr *entity.AgentError
		assert.True(t, errors.As(err, &agentErr))
	})

	t.Run("Missing key", func(t *testing.T) {
		agent := NewOpenAIAgent(OpenAIConfig{Logger: logger.NewNopLogger()})
		_, err := agent.Ask(context.Background(), agentRecords(1), nil, "Top product?")

		assert.ErrorIs(t, err, ErrAgentDisabled)
	})
}
