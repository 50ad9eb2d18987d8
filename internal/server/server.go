package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aurxine/quack-quack/internal/auth"
	"github.com/aurxine/quack-quack/internal/broadcast"
	"github.com/aurxine/quack-quack/internal/identity"
	"github.com/aurxine/quack-quack/internal/metrics"
	"github.com/aurxine/quack-quack/internal/registry"
	"github.com/aurxine/quack-quack/internal/server/middleware"
	"github.com/aurxine/quack-quack/internal/session"
	"github.com/aurxine/quack-quack/pkg/config"
)

type App struct {
	logger   *slog.Logger
	registry *registry.Registry
	engine   *broadcast.Engine
	resolver *identity.Resolver
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
	http     *http.Server
	config   *config.Config

	ctx context.Context
}

func NewApp(rootCtx context.Context, logger *slog.Logger, cfg *config.Config, sessions session.Store, provider identity.Provider) *App {
	reg := registry.New(logger)
	// Each App owns its collector registry so two instances (tests spin up
	// several) never collide on the default registerer.
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	app := &App{
		logger:   logger,
		registry: reg,
		engine:   broadcast.NewEngine(reg, m, logger),
		resolver: identity.NewResolver(sessions, logger),
		metrics:  m,
		config:   cfg,
		ctx:      rootCtx,
	}

	authHandler := auth.NewHandler(provider, sessions, cfg.Session.TTL, logger)
	base := cfg.Server.BaseURL

	r := chi.NewRouter()
	r.Use(
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(logger),
	)

	r.Post(base+"/api/v1/register", authHandler.Register)
	r.Post(base+"/api/v1/login", authHandler.Login)
	r.Post(base+"/api/v1/logout", authHandler.Logout)
	r.Get(base+"/ws/chat", app.handleChat)
	r.Get(base+"/status", app.handleStatus)
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	app.http = &http.Server{Addr: cfg.Server.Address, Handler: r, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

// Handler exposes the app's HTTP handler for tests.
func (a *App) Handler() http.Handler {
	return a.http.Handler
}

// Registry exposes the connection registry for tests and introspection.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	response := map[string]any{
		"message":     "Good Day! Everything is up and running :)",
		"connections": a.registry.Len(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// Shutdown runs the graceful shutdown sequence. Live websocket connections
// are closed first: their handlers block for the connection's lifetime, so
// http.Shutdown could never finish while any of them is still up.
func (a *App) Shutdown() error {
	a.logger.Info("Closing all active connections...")
	for _, entry := range a.registry.Snapshot() {
		entry.Conn.Close(errors.New("graceful shutdown"))
	}
	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("Server shut down gracefully.")
	return nil
}
