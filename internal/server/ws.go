package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/aurxine/quack-quack/internal/identity"
	"github.com/aurxine/quack-quack/internal/server/middleware"
	"github.com/aurxine/quack-quack/pkg/transport"
)

// sessionTokenHeader is the header fallback for clients that cannot put the
// token in the query string.
const sessionTokenHeader = "Session-Token"

// handleChat walks one connection through its whole life: upgrade, identity
// resolution, registry admission, the receive loop, and deregistration. The
// upgrade is accepted before the token is checked so an invalid token can be
// answered with a policy-violation close code that browser clients observe.
func (a *App) handleChat(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger
	if reqMeta != nil {
		connLogger = a.logger.With(slog.String("remoteAddr", reqMeta.IP))
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get(sessionTokenHeader)
	}

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: a.config.Server.AllowedOrigins,
	})
	if err != nil {
		connLogger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	ident, err := a.resolver.Resolve(r.Context(), token)
	if err != nil {
		a.metrics.RefusalsTotal.Inc()
		if errors.Is(err, identity.ErrUnauthenticated) {
			connLogger.Warn("Connection refused: invalid session token")
			wsConn.Close(websocket.StatusPolicyViolation, "invalid session token")
		} else {
			connLogger.Error("Connection refused: session store unavailable", slog.Any("error", err))
			wsConn.Close(websocket.StatusInternalError, "session store unavailable")
		}
		return
	}
	connLogger = connLogger.With(slog.String("userID", ident.UserID))

	// Both handlers are installed before the connection becomes visible in
	// the registry. Once admitted, a concurrent shutdown may Close it at any
	// moment, and the close handler is what deregisters it. The message
	// handler runs synchronously on the read pump, so frames from one sender
	// are broadcast in receipt order.
	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig{
			ReadTimeout: a.config.Transport.ReadTimeout,
			SendBuffer:  a.config.Transport.SendBuffer,
		},
		func(_ context.Context, connID uuid.UUID, msg []byte) {
			a.engine.Broadcast(string(msg), connID)
		},
		func(connID uuid.UUID, err error) {
			connLogger.Info("Deregistering connection due to closure", slog.String("connID", connID.String()))
			a.registry.Remove(connID)
			a.metrics.ActiveConnections.Dec()
		},
		a.logger,
	)

	// Incremented before Admit: the close handler decrements unconditionally,
	// including on the admission-failure path below.
	a.metrics.ActiveConnections.Inc()
	if _, err := a.registry.Admit(conn, ident.UserID, ident.DisplayName); err != nil {
		connLogger.Error("Failed to admit connection", slog.Any("error", err))
		conn.Close(err)
		return
	}

	a.metrics.ConnectionsTotal.Inc()
	connLogger.Info("User connection fully established",
		slog.String("connID", conn.ID().String()),
		slog.Int("userConnections", a.registry.CountByUser(ident.UserID)),
	)
	conn.Run()
	<-conn.Done()
}
