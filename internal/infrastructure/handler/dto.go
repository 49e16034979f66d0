package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/analysis"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string   `json:"error"`
	Status      int      `json:"status"`
	Description string   `json:"description,omitempty"`
	RequestID   string   `json:"request_id,omitempty"`
	Missing     []string `json:"missing_columns,omitempty"`
}

// HealthResponse represents the response for the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}

// TopResponse represents the response for the top groups endpoint
type TopResponse struct {
	By     metrics.GroupKey     `json:"by"`
	Metric metrics.Metric       `json:"metric"`
	Groups []metrics.GroupValue `json:"groups"`
}

// MonthlyResponse represents the response for the monthly trend endpoint
type MonthlyResponse struct {
	Metric metrics.Metric       `json:"metric"`
	Months []metrics.MonthValue `json:"months"`
}

// LowStockResponse represents the response for the low stock endpoint
type LowStockResponse struct {
	Threshold int64                `json:"threshold"`
	Products  []metrics.StockLevel `json:"products"`
}

// ExpiringResponse represents the response for the expiring stock endpoint
type ExpiringResponse struct {
	Reference string               `json:"reference"`
	Days      int                  `json:"days"`
	Items     []metrics.ExpiryItem `json:"items"`
}

// AnalysesResponse lists the available analyses
type AnalysesResponse struct {
	Analyses []string `json:"analyses"`
}

// AnalysisResponse wraps the result of one analysis
type AnalysisResponse struct {
	Name   string      `json:"name"`
	Result interface{} `json:"result"`
}

// AskRequest represents the request body for a chat turn
type AskRequest struct {
	Question string `json:"question"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	sendError(w, log, ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	})
}

func sendError(w http.ResponseWriter, log logger.Logger, resp ErrorResponse) {
	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  resp.RequestID,
		"status_code": resp.Status,
		"message":     resp.Error,
	})

	writeJSON(w, resp.Status, resp)
}

// sendServiceError maps a service error onto its HTTP status and logs it at
// a level matching who is at fault
func sendServiceError(w http.ResponseWriter, log logger.Logger, err error, requestID string) {
	var (
		schemaErr *entity.SchemaError
		loadErr   *entity.LoadError
		agentErr  *entity.AgentError
	)

	resp := ErrorResponse{RequestID: requestID, Description: err.Error()}
	switch {
	case errors.As(err, &schemaErr):
		resp.Error, resp.Status = "Sheet is missing required columns", http.StatusUnprocessableEntity
		resp.Missing = schemaErr.Missing
	case errors.As(err, &loadErr):
		resp.Error, resp.Status = "Sales data could not be loaded", http.StatusBadGateway
	case errors.As(err, &agentErr):
		resp.Error, resp.Status = "Assistant could not answer", http.StatusBadGateway
	case errors.Is(err, entity.ErrConversationNotFound):
		resp.Error, resp.Status = "Conversation not found", http.StatusNotFound
	case errors.Is(err, analysis.ErrUnknownAnalysis):
		resp.Error, resp.Status = "Analysis not found", http.StatusNotFound
	case errors.Is(err, analysis.ErrInsufficientHistory):
		resp.Error, resp.Status = "Not enough history", http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrInvalidQuestion):
		resp.Error, resp.Status = "Invalid question", http.StatusBadRequest
	case errors.Is(err, entity.ErrUnknownMetric), errors.Is(err, entity.ErrUnknownGroupKey):
		resp.Error, resp.Status = "Invalid parameter", http.StatusBadRequest
	default:
		resp.Error, resp.Status = "Internal server error", http.StatusInternalServerError
		resp.Description = "An unexpected error occurred"
	}

	fields := map[string]interface{}{
		"request_id":  requestID,
		"status_code": resp.Status,
		"error":       err.Error(),
	}
	if resp.Status >= http.StatusInternalServerError {
		log.Error(resp.Error, fields)
	} else {
		log.Warn(resp.Error, fields)
	}

	sendError(w, log, resp)
}
