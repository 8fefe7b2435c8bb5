package stream

import (
	"encoding/json"
	"time"

	matcherrors "github.com/abdoElHodaky/matchcore/internal/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBufferSize = 256
)

// Client is one connected WebSocket streaming session.
type Client struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger
}

func newClient(id string, conn *websocket.Conn, hub *Hub, logger *zap.Logger) *Client {
	return &Client{
		ID:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger,
	}
}

// SendFrame enqueues a frame for delivery. Never blocks; a client whose
// send buffer is full is disconnected by the hub rather than stalling the
// publisher.
func (c *Client) SendFrame(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		c.logger.Error("failed to marshal outbound frame", zap.Error(err))
		return
	}
	select {
	case c.send <- payload:
	default:
		c.hub.disconnect(c)
	}
}

// ReadPump pumps inbound control frames from the connection to the hub.
// Runs until the connection closes; must run in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				matchErr := matcherrors.Wrap(err, matcherrors.Transport, "unexpected websocket close")
				c.logger.Warn("streaming client disconnected", zap.String("client_id", c.ID), zap.Error(matchErr))
			}
			return
		}

		var ctrl controlFrame
		if err := json.Unmarshal(message, &ctrl); err != nil {
			c.SendFrame(newFrame("error", errorFrame{Message: "invalid json"}, 0))
			continue
		}
		c.hub.handleControl(c, ctrl)
	}
}

// WritePump pumps queued frames and periodic pings to the connection.
// Runs until the connection closes; must run in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One object per frame: each queued payload gets its own
			// WebSocket message rather than being newline-batched.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
