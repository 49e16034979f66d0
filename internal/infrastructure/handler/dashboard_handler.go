package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/service"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/middleware"
)

const (
	defaultTopN  = 5
	dateLayout   = "2006-01-02"
	exportName   = "bizbuddy-sales.csv"
	csvMediaType = "text/csv; charset=utf-8"
)

// DashboardHandler handles HTTP requests for metrics over the current snapshot
type DashboardHandler struct {
	service *service.DashboardService
	logger  logger.Logger
	now     func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *service.DashboardService, log logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.OrDefault(log),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Health reports that the server is up. It does not touch the data source.
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Dashboard handles the full dashboard view
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	reference, ok := h.reference(w, r, requestID)
	if !ok {
		return
	}

	dash, err := h.service.Dashboard(r.Context(), reference)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	h.logger.Debug("Dashboard computed", map[string]interface{}{
		"request_id":  requestID,
		"snapshot_id": dash.Snapshot.ID,
		"alerts":      len(dash.Alerts),
	})
	writeJSON(w, http.StatusOK, dash)
}

// Top handles ranking groups by a summed metric
func (h *DashboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	by := metrics.GroupKey(strings.ToLower(valueOr(query.Get("by"), string(metrics.ByProduct))))
	metric := metrics.Metric(strings.ToLower(valueOr(query.Get("metric"), string(metrics.Revenue))))
	n, ok := h.intParam(w, r, "n", defaultTopN, requestID)
	if !ok {
		return
	}

	groups, err := h.service.Top(r.Context(), by, metric, int(n))
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, TopResponse{By: by, Metric: metric, Groups: groups})
}

// Monthly handles the zero-filled monthly trend
func (h *DashboardHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	metric := metrics.Metric(strings.ToLower(valueOr(r.URL.Query().Get("metric"), string(metrics.Revenue))))

	months, err := h.service.Monthly(r.Context(), metric)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, MonthlyResponse{Metric: metric, Months: months})
}

// LowStock handles products whose inventory fell below a threshold
func (h *DashboardHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	threshold, ok := h.intParam(w, r, "threshold", -1, requestID)
	if !ok {
		return
	}

	levels, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	if threshold < 0 {
		threshold = h.service.Thresholds().LowStockThreshold
	}

	writeJSON(w, http.StatusOK, LowStockResponse{Threshold: threshold, Products: levels})
}

// Expiring handles stock expiring within a window
func (h *DashboardHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	reference, ok := h.reference(w, r, requestID)
	if !ok {
		return
	}
	days, ok := h.intParam(w, r, "days", -1, requestID)
	if !ok {
		return
	}

	items, err := h.service.Expiring(r.Context(), reference, int(days))
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	if days < 0 {
		days = int64(h.service.Thresholds().ExpiryWarningDays)
	}

	writeJSON(w, http.StatusOK, ExpiringResponse{
		Reference: reference.Format(dateLayout),
		Days:      int(days),
		Items:     items,
	})
}

// Performers handles the best and worst products by mean profit
func (h *DashboardHandler) Performers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	n, ok := h.intParam(w, r, "n", defaultTopN, requestID)
	if !ok {
		return
	}

	perf, err := h.service.Performers(r.Context(), int(n))
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// Alerts handles the alerting policy's current alerts
func (h *DashboardHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	reference, ok := h.reference(w, r, requestID)
	if !ok {
		return
	}

	alerts, err := h.service.Alerts(r.Context(), reference)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// Analyses lists the available analyses
func (h *DashboardHandler) Analyses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AnalysesResponse{Analyses: h.service.AnalysisNames()})
}

// Analysis runs one named analysis
func (h *DashboardHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	name := mux.Vars(r)["name"]

	result, err := h.service.Analysis(r.Context(), name)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, AnalysisResponse{Name: name, Result: result})
}

// Report handles the validation report of the current snapshot
func (h *DashboardHandler) Report(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, snap.Report)
}

// Export handles downloading the validated records as CSV
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf); err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	w.Header().Set("Content-Type", csvMediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Refresh forces a new snapshot load
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	snap, err := h.service.Refresh(r.Context())
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, service.Info(snap))
}

// RegisterRoutes registers the dashboard handler routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
	router.HandleFunc("/metrics/top", h.Top).Methods("GET")
	router.HandleFunc("/metrics/monthly", h.Monthly).Methods("GET")
	router.HandleFunc("/metrics/low-stock", h.LowStock).Methods("GET")
	router.HandleFunc("/metrics/expiring", h.Expiring).Methods("GET")
	router.HandleFunc("/metrics/performers", h.Performers).Methods("GET")
	router.HandleFunc("/alerts", h.Alerts).Methods("GET")
	router.HandleFunc("/analyses", h.Analyses).Methods("GET")
	router.HandleFunc("/analyses/{name}", h.Analysis).Methods("GET")
	router.HandleFunc("/report", h.Report).Methods("GET")
	router.HandleFunc("/export.csv", h.Export).Methods("GET")
	router.HandleFunc("/snapshot/refresh", h.Refresh).Methods("POST")

	h.logger.Info("Dashboard routes registered", map[string]interface{}{
		"routes": []string{
			"GET /health",
			"GET /dashboard",
			"GET /metrics/{top,monthly,low-stock,expiring,performers}",
			"GET /alerts",
			"GET /analyses",
			"GET /analyses/{name}",
			"GET /report",
			"GET /export.csv",
			"POST /snapshot/refresh",
		},
	})
}

// reference parses the optional reference date, defaulting to today
func (h *DashboardHandler) reference(w http.ResponseWriter, r *http.Request, requestID string) (time.Time, bool) {
	raw := r.URL.Query().Get("reference")
	if raw == "" {
		return h.now(), true
	}

	reference, err := time.Parse(dateLayout, raw)
	if err != nil {
		h.logger.Warn("Invalid reference date", map[string]interface{}{
			"request_id": requestID,
			"reference":  raw,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid reference date",
			"Reference must be in YYYY-MM-DD format", http.StatusBadRequest, requestID)
		return time.Time{}, false
	}
	return reference, true
}

func (h *DashboardHandler) intParam(w http.ResponseWriter, r *http.Request, name string, fallback int64, requestID string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		h.logger.Warn("Invalid query parameter", map[string]interface{}{
			"request_id": requestID,
			"param":      name,
			"value":      raw,
		})
		sendErrorResponse(w, h.logger, "Invalid "+name+" parameter",
			"The '"+name+"' query parameter must be a non-negative integer", http.StatusBadRequest, requestID)
		return 0, false
	}
	return v, true
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
