package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096

	sendBuffer = 256
)

// Client is one websocket subscribed to a single event channel.
type Client struct {
	ID      string
	Channel string
	Conn    *websocket.Conn
	Send    chan []byte

	done chan struct{}
}

func NewClient(conn *websocket.Conn, channel string) *Client {
	return &Client{
		ID:      uuid.NewString(),
		Channel: channel,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
}

// Request is a message sent by the host over an event stream.
type Request struct {
	Action     string `json:"action"`
	WillHandle bool   `json:"willHandle"`
}

// WritePump drains Send until the client is unregistered or a write
// fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump blocks until the connection drops, handing every well-formed
// request to onRequest.
func (c *Client) ReadPump(onRequest func(Request)) {
	c.Conn.SetReadLimit(MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil || req.Action == "" {
			continue
		}
		onRequest(req)
	}
}
