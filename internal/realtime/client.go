package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client is one websocket connection. It implements Sink.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// NewClient wraps conn. bufferSize bounds how many frames may wait for a slow reader.
func NewClient(hub *Hub, conn *websocket.Conn, bufferSize int, logger *zap.Logger) *Client {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("client_id", id)),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Enqueue hands frame to the write pump without blocking.
func (c *Client) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// ReadPump reads control frames until the connection fails, then detaches the client from the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Remove(c)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("realtime read failed", zap.Error(err))
			}
			return
		}
		c.handleFrame(raw)
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("realtime write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Client) handleFrame(raw []byte) {
	var in InboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		c.Enqueue(controlFrame(TypeError, "", "malformed frame"))
		return
	}

	switch in.Type {
	case TypeSubscribe:
		if !ValidRoom(in.Room) {
			c.Enqueue(controlFrame(TypeError, in.Room, "unknown room"))
			return
		}
		c.hub.Subscribe(c, in.Room)
		c.Enqueue(controlFrame(TypeSubscribed, in.Room, ""))
	case TypeUnsubscribe:
		c.hub.Unsubscribe(c, in.Room)
		c.Enqueue(controlFrame(TypeUnsubscribed, in.Room, ""))
	case TypePing:
		c.Enqueue(controlFrame(TypePong, "", ""))
	default:
		c.Enqueue(controlFrame(TypeError, "", "unsupported frame type"))
	}
}
