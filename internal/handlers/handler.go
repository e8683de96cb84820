package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/arko-chat/flurrybridge/internal/dispatcher"
	"github.com/arko-chat/flurrybridge/internal/relay"
	"github.com/arko-chat/flurrybridge/internal/ws"
)

// Bridge is the part of bridge.Plugin the HTTP transport drives.
type Bridge interface {
	Call(ctx context.Context, method string, args dispatcher.Args) (any, error)
	Listen(channel string, sink relay.Sink) error
	Cancel(channel string) error
	Replay(channel string, sink relay.Sink) error
	NotifyDecision(willHandle bool) bool
}

type Handler struct {
	bridge Bridge
	hub    *ws.Hub
	logger *slog.Logger

	// serializes hub membership changes with Listen/Cancel
	subMu sync.Mutex
}

func New(b Bridge, hub *ws.Hub, logger *slog.Logger) *Handler {
	return &Handler{bridge: b, hub: hub, logger: logger}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response failed", "err", err)
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
