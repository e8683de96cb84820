package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/arko-chat/flurrybridge/internal/relay"
	"github.com/arko-chat/flurrybridge/internal/ws"
)

const actionDecision = "decision"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func knownChannel(channel string) bool {
	switch channel {
	case relay.ChannelConfig, relay.ChannelMessaging, relay.ChannelSegmentation:
		return true
	}
	return false
}

// HandleEvents streams one event channel over a websocket. The first
// subscriber attaches the hub as the channel's sink and the last one to
// leave cancels it. Later subscribers get the channel's replayable
// state sent to them alone.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if !knownChannel(channel) {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "channel", channel, "err", err)
		return
	}

	client := ws.NewClient(conn, channel)
	if err := h.subscribe(client); err != nil {
		h.logger.Error("ws subscribe failed", "channel", channel, "err", err)
		conn.Close()
		return
	}
	defer h.unsubscribe(client)

	go client.WritePump()

	client.ReadPump(func(req ws.Request) {
		switch req.Action {
		case actionDecision:
			if channel != relay.ChannelMessaging {
				return
			}
			if !h.bridge.NotifyDecision(req.WillHandle) {
				h.logger.Debug("ws decision without pending notification")
			}
		default:
			h.logger.Debug("ws unknown action", "action", req.Action)
		}
	})
}

func (h *Handler) subscribe(c *ws.Client) error {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	if !h.hub.Register(c) {
		if err := h.bridge.Replay(c.Channel, h.hub.ClientSink(c)); err != nil {
			h.hub.Unregister(c)
			return err
		}
		return nil
	}
	if err := h.bridge.Listen(c.Channel, h.hub.Sink(c.Channel)); err != nil {
		h.hub.Unregister(c)
		return err
	}
	return nil
}

func (h *Handler) unsubscribe(c *ws.Client) {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	if !h.hub.Unregister(c) {
		return
	}
	if err := h.bridge.Cancel(c.Channel); err != nil {
		h.logger.Warn("ws cancel failed", "channel", c.Channel, "err", err)
	}
}
