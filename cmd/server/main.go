package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/alerting"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/ingest"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/service"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/config"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/api"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/cache"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/db"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/handler"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/middleware"
)

func main() {
	cfg := config.Load()

	log := logger.NewJSONLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	logger.SetDefaultLogger(log)

	log.Info("Starting BizBuddy sales insights server", map[string]interface{}{
		"schema_profile": cfg.SchemaProfile,
		"snapshot_ttl":   cfg.SnapshotTTL.String(),
		"agent_enabled":  cfg.AgentEnabled(),
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err})
	}

	schema, err := ingest.SchemaByName(cfg.SchemaProfile)
	if err != nil {
		log.Fatal("Invalid schema profile", map[string]interface{}{"error": err})
	}
	policy, err := alerting.NewPolicy(cfg.AlertConfig())
	if err != nil {
		log.Fatal("Invalid alert thresholds", map[string]interface{}{"error": err})
	}

	// Setup BadgerDB
	badgerDB, err := db.OpenBadger(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to open database", map[string]interface{}{
			"data_dir": cfg.DataDir,
			"error":    err,
		})
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			log.Error("Error closing BadgerDB", map[string]interface{}{"error": err})
		}
	}()

	answers := answerCache(cfg, log)

	// Initialize repositories
	source := api.NewSheetClient(api.SheetClientConfig{
		URL:        cfg.SheetURL,
		Timeout:    cfg.SheetTimeout,
		MaxRetries: cfg.SheetMaxRetries,
		Logger:     log,
	})
	snapshots := db.NewSheetSnapshotRepository(source, ingest.NewPipeline(schema), log)
	conversations := db.NewBadgerConversationRepository(badgerDB)

	if !cfg.AgentEnabled() {
		log.Warn("OPENAI_API_KEY is not set; chat questions will fail", nil)
	}
	agent := api.NewOpenAIAgent(api.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		MaxRows: cfg.AgentMaxRows,
		Logger:  log,
	})

	// Initialize services
	dashboardService := service.NewDashboardService(snapshots, cache.NewSnapshotCache(cfg.SnapshotTTL), policy, nil, log)
	chatService := service.NewChatService(dashboardService, agent, answers, cfg.AnswerCacheTTL, conversations, log)

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.RecoverMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))
	router.Use(middleware.LoggingMiddleware(log))
	// Preflight requests need a matching route for the middleware chain to run
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	handler.NewDashboardHandler(dashboardService, log).RegisterRoutes(router)
	handler.NewChatHandler(chatService, log).RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", map[string]interface{}{"error": err})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err})
	}
}

// answerCache connects to Redis when configured and falls back to no caching
// when it is unset or unreachable
func answerCache(cfg config.Config, log logger.Logger) cache.AnswerCache {
	if cfg.RedisAddr == "" {
		return cache.NoopAnswerCache{}
	}

	redisCache := cache.NewRedisAnswerCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("Redis unavailable, answer caching disabled", map[string]interface{}{
			"addr":  cfg.RedisAddr,
			"error": err,
		})
		redisCache.Close()
		return cache.NoopAnswerCache{}
	}

	log.Info("Answer cache connected", map[string]interface{}{"addr": cfg.RedisAddr})
	return redisCache
}
