// newschat - conversational news assistant backend
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/newschat-dev/newschat/internal/api"
	"github.com/newschat-dev/newschat/internal/cache"
	"github.com/newschat-dev/newschat/internal/config"
	"github.com/newschat-dev/newschat/internal/history"
	"github.com/newschat-dev/newschat/internal/observability"
	"github.com/newschat-dev/newschat/internal/provider"
	"github.com/newschat-dev/newschat/internal/rag"
	"github.com/newschat-dev/newschat/internal/session"
	"github.com/newschat-dev/newschat/internal/store"
	"github.com/newschat-dev/newschat/internal/ws"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "session_ttl", cfg.SessionTTL)

	// Cache tier.
	cacheTier, err := cache.New(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.SessionTTL,
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := cacheTier.Close(); closeErr != nil {
			slog.Error("Failed to close cache", "error", closeErr)
		}
	}()
	slog.Info("Redis connected", "addr", cfg.Redis.Addr)

	// Durable tier.
	messageStore, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := messageStore.Close(); closeErr != nil {
			slog.Error("Failed to close message store", "error", closeErr)
		}
	}()
	if err := messageStore.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	// External providers.
	embedder, err := provider.NewOpenAIEmbedder(provider.EmbedderConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		slog.Error("Failed to create embedding client", "error", err)
		os.Exit(1)
	}

	generator, err := provider.NewOpenAIGenerator(provider.GeneratorConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
	})
	if err != nil {
		slog.Error("Failed to create generation client", "error", err)
		os.Exit(1)
	}

	index, err := provider.NewPineconeIndex(provider.PineconeConfig{
		APIKey: cfg.Pinecone.APIKey,
		Host:   cfg.Pinecone.Host,
	})
	if err != nil {
		slog.Error("Failed to create vector index client", "error", err)
		os.Exit(1)
	}

	if count, err := index.Count(context.Background()); err != nil {
		slog.Warn("Failed to read vector index stats", "error", err)
	} else {
		slog.Info("Vector index ready", "article_count", count)
		if count == 0 {
			slog.Warn("Vector index is empty; queries will answer without article context")
		}
	}

	// Core components.
	sessions := session.NewStore(cacheTier)
	log := history.NewLog(cacheTier, messageStore, sessions)
	orchestrator := rag.NewOrchestrator(embedder, index, generator, log)

	hub := ws.NewHub()
	broker := ws.NewBroker(hub, log, orchestrator)
	chatHandler := api.NewHandler(sessions, log, orchestrator)

	// Router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	allowedOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		allowedOrigins = []string{cfg.FrontendURL}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", api.SessionHeader},
		ExposedHeaders: []string{api.SessionHeader},
	}))

	r.Handle("/metrics", observability.Handler())
	r.Get("/ws/chat", broker.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(api.SessionMiddleware(sessions))
		chatHandler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses and long-lived sockets
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
