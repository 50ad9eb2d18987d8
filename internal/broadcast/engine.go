// Package broadcast fans an inbound message out to every live connection,
// including the sender, which sees its own message echoed back.
package broadcast

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aurxine/quack-quack/internal/metrics"
	"github.com/aurxine/quack-quack/internal/registry"
)

// Envelope is the server-to-client wire unit.
type Envelope struct {
	Message string `json:"message"`
	Color   string `json:"color"`
}

// Fallback metadata for a sender that disconnected the instant before its own
// message was broadcast.
const (
	unknownSender = "unknown"
	unknownColor  = "#000000"
)

// Directory is the registry view the engine needs.
type Directory interface {
	Get(id uuid.UUID) (*registry.Entry, bool)
	Snapshot() []*registry.Entry
}

type Engine struct {
	directory Directory
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewEngine(directory Directory, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		directory: directory,
		metrics:   m,
		logger:    logger.With(slog.String("component", "broadcast_engine")),
	}
}

// Broadcast delivers text from sender to every connection live at the start
// of the pass. Per-recipient failures are logged and counted, never returned:
// one closed or stalled recipient must not cost anyone else their delivery,
// and the sender never learns of it.
func (e *Engine) Broadcast(text string, sender uuid.UUID) {
	name, color := unknownSender, unknownColor
	if entry, ok := e.directory.Get(sender); ok {
		name, color = entry.DisplayName, entry.Color
	}

	payload, err := json.Marshal(Envelope{
		Message: name + ": " + text,
		Color:   color,
	})
	if err != nil {
		// Cannot happen for a flat struct of strings, but stay loud.
		e.logger.Error("Failed to marshal envelope", slog.Any("error", err))
		return
	}

	for _, entry := range e.directory.Snapshot() {
		if err := entry.Conn.Send(payload); err != nil {
			e.metrics.DeliveryFailuresTotal.Inc()
			e.logger.Warn("Delivery failed, skipping recipient",
				slog.String("connID", entry.Conn.ID().String()),
				slog.String("userID", entry.UserID),
				slog.Any("error", err),
			)
		}
	}
	e.metrics.BroadcastsTotal.Inc()
}
