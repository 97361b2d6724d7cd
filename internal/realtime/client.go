package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frahmantamala/licensestore/internal"
)

// FrameHandler receives every text frame a client sends.
type FrameHandler func(ctx context.Context, c *Client, data []byte)

// Client is one websocket connection attached to a hub. groups and closed are
// guarded by the hub lock.
type Client struct {
	UserID int64
	Roles  []string

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	groups map[string]struct{}
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID int64, roles []string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		UserID: userID,
		Roles:  roles,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, buffer),
		groups: make(map[string]struct{}),
	}
}

// Reply sends a frame to this client only.
func (c *Client) Reply(frame Frame) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.closed {
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump runs until the peer goes away, then detaches the client.
func (c *Client) readPump(ctx context.Context, cfg internal.RealtimeConfig, onFrame FrameHandler, logger *slog.Logger) {
	defer func() {
		c.hub.Remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket closed unexpectedly", "error", err, "user_id", c.UserID)
			}
			return
		}
		if msgType != websocket.TextMessage || onFrame == nil {
			continue
		}
		onFrame(ctx, c, data)
	}
}

func (c *Client) writePump(cfg internal.RealtimeConfig) {
	ticker := time.NewTicker(cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
