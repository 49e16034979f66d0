package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/service"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/middleware"
)

// ChatHandler handles HTTP requests for conversations with the assistant
type ChatHandler struct {
	service *service.ChatService
	logger  logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service *service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.OrDefault(log),
	}
}

// CreateConversation handles opening a new conversation
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	conv, err := h.service.Start(r.Context())
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	w.Header().Set("Location", "/conversations/"+conv.ID)
	writeJSON(w, http.StatusCreated, conv)
}

// GetConversation handles retrieving a transcript
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := mux.Vars(r)["id"]

	conv, err := h.service.Get(r.Context(), id)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Ask handles one question-answer turn
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := mux.Vars(r)["id"]

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	h.logger.Info("Handling chat turn", map[string]interface{}{
		"request_id":      requestID,
		"conversation_id": id,
		"question_length": len(req.Question),
	})

	conv, err := h.service.Ask(r.Context(), id, req.Question)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// ClearConversation handles emptying a transcript while keeping the conversation
func (h *ChatHandler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := mux.Vars(r)["id"]

	conv, err := h.service.Clear(r.Context(), id)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// DeleteConversation handles removing a conversation
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.service.Delete(r.Context(), id); err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers the chat handler routes
func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/conversations", h.CreateConversation).Methods("POST")
	router.HandleFunc("/conversations/{id}", h.GetConversation).Methods("GET")
	router.HandleFunc("/conversations/{id}", h.DeleteConversation).Methods("DELETE")
	router.HandleFunc("/conversations/{id}/messages", h.Ask).Methods("POST")
	router.HandleFunc("/conversations/{id}/messages", h.ClearConversation).Methods("DELETE")

	h.logger.Info("Chat routes registered", map[string]interface{}{
		"routes": []string{
			"POST /conversations",
			"GET /conversations/{id}",
			"DELETE /conversations/{id}",
			"POST /conversations/{id}/messages",
			"DELETE /conversations/{id}/messages",
		},
	})
}
