package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/ingest"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
)

const maxSheetBytes = 32 << 20

var (
	errNotCSV      = errors.New("response is an HTML page, not a CSV export; is the sheet published?")
	errSheetTooBig = fmt.Errorf("sheet export exceeds %d bytes", maxSheetBytes)
)

// SheetClientConfig configures a SheetClient
type SheetClientConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     logger.Logger
}

// SheetClient downloads a published spreadsheet's CSV export
type SheetClient struct {
	sheetURL   string
	httpClient *http.Client
	maxRetries int
	backoff    func(attempt int) time.Duration
	log        logger.Logger
}

// NewSheetClient creates a sheet client. Defaults: 10s timeout, 3 attempts.
func NewSheetClient(cfg SheetClientConfig) *SheetClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}

	client := &SheetClient{
		sheetURL:   cfg.URL,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
		log: logger.OrDefault(cfg.Logger),
	}
	client.log = client.log.WithField("source", client.Name())
	return client
}

// Name identifies the sheet by host and path, leaving out query parameters
func (c *SheetClient) Name() string {
	u, err := url.Parse(c.sheetURL)
	if err != nil || u.Host == "" {
		return "sheet"
	}
	return u.Host + u.Path
}

// FetchTable downloads the CSV export and parses it into a raw table.
// Transport errors and 5xx responses are retried with quadratic backoff.
func (c *SheetClient) FetchTable(ctx context.Context) (*entity.Table, error) {
	body, err := c.download(ctx)
	if err != nil {
		return nil, &entity.LoadError{Source: c.Name(), Err: err}
	}

	table, err := ingest.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil, &entity.LoadError{Source: c.Name(), Err: err}
	}

	c.log.Debug("Sheet fetched", map[string]interface{}{
		"bytes":   len(body),
		"columns": len(table.Columns),
		"rows":    len(table.Rows),
	})
	return table, nil
}

func (c *SheetClient) download(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		body, retryable, err := c.get(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || attempt == c.maxRetries {
			break
		}

		wait := c.backoff(attempt)
		c.log.Warn("Sheet request failed, retrying", map[string]interface{}{
			"attempt":     attempt,
			"max_retries": c.maxRetries,
			"retry_in_ms": wait.Milliseconds(),
			"error":       err,
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// get performs one request. retryable reports whether another attempt could succeed.
func (c *SheetClient) get(ctx context.Context) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sheetURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Warn("Error closing response body", map[string]interface{}{"error": closeErr})
		}
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests,
			fmt.Errorf("sheet returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "text/html" {
		return nil, false, errNotCSV
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxSheetBytes {
		return nil, false, errSheetTooBig
	}
	return body, false, nil
}
