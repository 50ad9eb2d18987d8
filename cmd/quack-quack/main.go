package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/aurxine/quack-quack/internal/identity"
	"github.com/aurxine/quack-quack/internal/server"
	"github.com/aurxine/quack-quack/internal/session"
	"github.com/aurxine/quack-quack/pkg/config"
	"github.com/aurxine/quack-quack/pkg/logging"
)

func main() {
	logger := logging.New(logging.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	// Rebuild at the configured level now that config is in.
	logger = logging.New(logging.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := newSessionStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize session store", slog.Any("error", err))
		os.Exit(1)
	}
	defer sessions.Close()

	provider := identity.NewMemoryProvider()

	app := server.NewApp(ctx, logger, cfg, sessions, provider)
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}

func newSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		logger.Info("Using redis session store", slog.String("addr", cfg.Redis.Addr))
		return session.NewRedisStore(client, logger), nil
	default:
		logger.Info("Using in-memory session store")
		return session.NewMemoryStore(logger), nil
	}
}
