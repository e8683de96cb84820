package ws

import (
	"encoding/json"
	"log/slog"
	"maps"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arko-chat/flurrybridge/internal/relay"
)

// Frame is the JSON text frame written for every relayed event.
type Frame struct {
	Channel string `json:"channel"`
	Event   any    `json:"event"`
}

// Hub fans relay events out to every websocket subscribed to a channel.
type Hub struct {
	channels *xsync.Map[string, map[string]*Client]
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		channels: xsync.NewMap[string, map[string]*Client](),
		logger:   logger,
	}
}

// Register adds c to its channel. It reports whether c is the first
// subscriber.
func (h *Hub) Register(c *Client) bool {
	first := false
	h.channels.Compute(c.Channel, func(old map[string]*Client, loaded bool) (map[string]*Client, xsync.ComputeOp) {
		first = len(old) == 0
		next := maps.Clone(old)
		if next == nil {
			next = make(map[string]*Client, 1)
		}
		next[c.ID] = c
		return next, xsync.UpdateOp
	})
	h.logger.Debug("ws register",
		"channel", c.Channel,
		"client", c.ID,
		"clients", h.Count(c.Channel),
	)
	return first
}

// Unregister removes c and stops its write pump. It reports whether the
// channel has no subscribers left.
func (h *Hub) Unregister(c *Client) bool {
	removed, last := false, false
	h.channels.Compute(c.Channel, func(old map[string]*Client, loaded bool) (map[string]*Client, xsync.ComputeOp) {
		if _, ok := old[c.ID]; !ok {
			return old, xsync.CancelOp
		}
		removed = true
		if len(old) == 1 {
			last = true
			return nil, xsync.DeleteOp
		}
		next := maps.Clone(old)
		delete(next, c.ID)
		return next, xsync.UpdateOp
	})
	if !removed {
		return false
	}
	close(c.done)
	h.logger.Debug("ws unregister", "channel", c.Channel, "client", c.ID)
	return last
}

func (h *Hub) Count(channel string) int {
	clients, _ := h.channels.Load(channel)
	return len(clients)
}

// Broadcast queues data on every client of channel and returns how many
// accepted it. Clients with a full buffer miss the frame.
func (h *Hub) Broadcast(channel string, data []byte) int {
	if data == nil {
		return 0
	}

	clients, _ := h.channels.Load(channel)
	sent := 0
	for _, c := range clients {
		if h.send(c, data) {
			sent++
		}
	}

	h.logger.Debug("ws broadcast",
		"channel", channel,
		"recipients", sent,
	)
	return sent
}

func (h *Hub) send(c *Client, data []byte) bool {
	select {
	case c.Send <- data:
		return true
	case <-c.done:
	default:
		h.logger.Warn("ws dropped message",
			"channel", c.Channel,
			"client", c.ID,
		)
	}
	return false
}

// Sink returns a relay sink that broadcasts every event on channel as a
// Frame.
func (h *Hub) Sink(channel string) relay.Sink {
	return relay.SinkFunc(func(payload any) {
		if data := h.encode(channel, payload); data != nil {
			h.Broadcast(channel, data)
		}
	})
}

// ClientSink returns a relay sink that writes only to c.
func (h *Hub) ClientSink(c *Client) relay.Sink {
	return relay.SinkFunc(func(payload any) {
		if data := h.encode(c.Channel, payload); data != nil {
			h.send(c, data)
		}
	})
}

func (h *Hub) encode(channel string, payload any) []byte {
	data, err := json.Marshal(Frame{Channel: channel, Event: payload})
	if err != nil {
		h.logger.Error("ws encode event", "channel", channel, "err", err)
		return nil
	}
	return data
}
