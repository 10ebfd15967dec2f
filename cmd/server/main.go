// botchat - conversational agent server with credential-backed sessions.
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

	"github.com/avdeyev/botchat/internal/api"
	"github.com/avdeyev/botchat/internal/auth"
	"github.com/avdeyev/botchat/internal/bot"
	"github.com/avdeyev/botchat/internal/chat"
	"github.com/avdeyev/botchat/internal/config"
	"github.com/avdeyev/botchat/internal/middleware"
	"github.com/avdeyev/botchat/internal/session"
	"github.com/avdeyev/botchat/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

const ttlSweepInterval = 5 * time.Minute

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

	slog.Info("Starting server", "port", cfg.Port, "store", cfg.StoreBackend, "dev", cfg.IsDevelopment())

	// Initialize the credential store.
	repo, history, err := newRepository(cfg)
	if err != nil {
		slog.Error("Failed to initialize credential store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close credential store", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Credential store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Credential store ready")

	// Initialize the bot capability once; it is reused for every message.
	botClient := newBotClient(cfg)
	defer func() {
		if closeErr := botClient.Close(); closeErr != nil {
			slog.Warn("Failed to close bot client", "error", closeErr)
		}
	}()

	// Initialize services.
	authSvc := auth.NewService(repo)
	sessions := session.NewManager(authSvc, history)
	orchestrator := chat.NewOrchestrator(botClient, cfg.Bot.Timeout, history)

	// Initialize handlers.
	baseHandler := api.NewHandler(authSvc, sessions, cfg.FrontendURL)
	authHandler := api.NewAuthHandler(baseHandler, cfg.SessionTTL)
	chatHandler := chat.NewHandler(orchestrator, cfg.Chat.RateLimitRequests, cfg.Chat.RateLimitWindow, cfg.Chat.MaxRequestBodySize)
	defer chatHandler.Close()

	registry := chat.NewConnRegistry()
	wsHandler := chat.NewWebSocketHandler(orchestrator, registry, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(session.Middleware(sessions))

	authHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the session TTL worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.StartTTLWorker(ctx, cfg.SessionTTL, ttlSweepInterval, registry.CloseSession)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
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

// newRepository selects the store backend. Durable chat history requires the
// SQLite backend; with the JSON backend it is disabled with a warning.
func newRepository(cfg *config.Config) (store.Repository, store.HistoryRepository, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendJSON:
		repo, err := store.NewJSONFile(cfg.UserDataPath)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Chat.PersistHistory {
			slog.Warn("CHAT_HISTORY_PERSIST requires the sqlite backend, history disabled")
		}
		return repo, nil, nil
	default:
		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		var history store.HistoryRepository
		if cfg.Chat.PersistHistory {
			history = repo
			slog.Info("Durable chat history enabled")
		}
		return repo, history, nil
	}
}

// newBotClient prefers the Gemini-backed client and falls back to scripted
// replies when no API key is configured or the client cannot be built.
func newBotClient(cfg *config.Config) bot.Client {
	if cfg.Bot.GeminiAPIKey == "" {
		slog.Info("GEMINI_API_KEY not set, using scripted bot replies")
		return bot.NewScripted()
	}

	client, err := bot.NewGemini(context.Background(), cfg.Bot.GeminiAPIKey, cfg.Bot.Model)
	if err != nil {
		slog.Warn("Failed to initialize Gemini client, using scripted bot replies", "error", err)
		return bot.NewScripted()
	}

	slog.Info("Gemini bot client initialized", "model", cfg.Bot.Model)
	return client
}
