package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/ingest"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
)

const (
	openAIBaseURL   = "https://api.openai.com/v1"
	completionsPath = "/chat/completions"
)

// ErrAgentDisabled is returned when no API key is configured
var ErrAgentDisabled = errors.New("no OpenAI API key configured")

// OpenAIConfig configures an OpenAIAgent
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRows    int
	HTTPClient *http.Client
	Logger     logger.Logger
}

// OpenAIAgent answers questions about a record set with the chat completions API.
// The prompt carries headline figures plus the first MaxRows records as CSV.
type OpenAIAgent struct {
	apiKey     string
	model      string
	baseURL    string
	maxRows    int
	httpClient *http.Client
	log        logger.Logger
}

// NewOpenAIAgent creates an agent
func NewOpenAIAgent(cfg OpenAIConfig) *OpenAIAgent {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = openAIBaseURL
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 200
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &OpenAIAgent{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRows:    cfg.MaxRows,
		httpClient: cfg.HTTPClient,
		log:        logger.OrDefault(cfg.Logger).WithField("component", "openai_agent"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Ask implements service.Agent
func (a *OpenAIAgent) Ask(ctx context.Context, records entity.RecordSet, history []entity.ChatMessage, question string) (string, error) {
	if a.apiKey == "" {
		return "", &entity.AgentError{Err: ErrAgentDisabled}
	}

	system, err := a.systemPrompt(records)
	if err != nil {
		return "", &entity.AgentError{Err: err}
	}

	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: question})

	start := time.Now()
	answer, err := a.complete(ctx, chatRequest{Model: a.model, Messages: messages, Temperature: 0})
	if err != nil {
		a.log.Error("Chat completion failed", map[string]interface{}{
			"model": a.model,
			"error": err,
		})
		return "", &entity.AgentError{Err: err}
	}

	a.log.Info("Chat completion succeeded", map[string]interface{}{
		"model":       a.model,
		"history":     len(history),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return answer, nil
}

func (a *OpenAIAgent) systemPrompt(records entity.RecordSet) (string, error) {
	sample := records
	if records.Len() > a.maxRows {
		sample = entity.NewRecordSet(records.Records()[:a.maxRows])
	}

	var data bytes.Buffer
	if err := ingest.WriteCSV(&data, sample); err != nil {
		return "", fmt.Errorf("failed to render dataset: %w", err)
	}

	summary := metrics.Summarize(records)
	var b strings.Builder
	b.WriteString("You are BizBuddy, an analyst answering questions about a pharmacy sales dataset.\n")
	b.WriteString("Answer only from the data below. Say so when the data cannot answer the question.\n\n")
	fmt.Fprintf(&b, "Records: %d\nTotal revenue: %s\nTotal units sold: %d\nTotal profit: %s\n",
		summary.Records, summary.TotalRevenue.StringFixed(2), summary.TotalUnits, summary.TotalProfit.StringFixed(2))
	if from, to, ok := records.DateSpan(); ok {
		fmt.Fprintf(&b, "Date range: %s to %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	if sample.Len() < records.Len() {
		fmt.Fprintf(&b, "\nThe first %d of %d records as CSV:\n", sample.Len(), records.Len())
	} else {
		b.WriteString("\nAll records as CSV:\n")
	}
	b.Write(data.Bytes())
	return b.String(), nil
}

func (a *OpenAIAgent) complete(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("API returned no choices")
	}

	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("API returned an empty answer")
	}
	return answer, nil
}
