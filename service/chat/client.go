package chat

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marc0cl/domu-backend-sub001/logger"
)

const maxFrameSize = 1 << 20 // 1MB

// transport is the slice of *websocket.Conn the gateway touches. Tests swap in
// a fake so registry/router behavior can be exercised without sockets.
type transport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
	RemoteAddr() net.Addr
	Close() error
}

// Client is one authenticated session: a user id bound to one open websocket.
// Outbound frames go through the buffered send queue and are written by a
// single writer goroutine, so the router and the presence broadcaster never
// touch the socket directly.
type Client struct {
	ConnID      string
	UserID      int64
	ConnectedAt time.Time

	ws   transport
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}

	pingInterval time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration
}

func NewClient(connID string, userID int64, ws transport, cfg ClientConfig) *Client {
	cfg.norm()
	return &Client{
		ConnID:       connID,
		UserID:       userID,
		ConnectedAt:  time.Now(),
		ws:           ws,
		send:         make(chan []byte, cfg.SendQueueSize),
		done:         make(chan struct{}),
		pingInterval: cfg.PingInterval,
		writeTimeout: cfg.WriteTimeout,
		readTimeout:  cfg.ReadTimeout,
	}
}

type ClientConfig struct {
	SendQueueSize int
	PingInterval  time.Duration
	WriteTimeout  time.Duration
	ReadTimeout   time.Duration
}

func (c *ClientConfig) norm() {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
}

// Push enqueues one outbound frame without blocking. False means the frame was
// dropped: the client is closed or its queue is full (slow consumer).
func (c *Client) Push(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close is idempotent and terminal; it stops the write pump and closes the
// transport, which in turn unblocks the read loop.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.ws.Close(); err != nil {
			logger.Debug("close ws: " + err.Error())
		}
	})
}

func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// prepareRead arms the read deadline and keeps it fresh on pongs.
func (c *Client) prepareRead() {
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	})
}

// writePump drains the send queue and keeps the connection alive with pings.
// It is the only goroutine that writes to the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[ws] write err user=%d conn=%s err=%v", c.UserID, c.ConnID, err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
