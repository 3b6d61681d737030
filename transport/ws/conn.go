// Package ws exposes the realtime subsystem over a websocket endpoint.
// Frames are JSON envelopes: {"event": "...", "payload": {...}}.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	apperrors "chat-hive/errors"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 15 * time.Second
	readLimit    = 1 << 20
)

// frame is the outbound wire envelope.
type frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// envelope is the inbound counterpart; the payload stays raw until the
// event name selects a concrete type.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Conn owns one websocket and satisfies the connection handle the realtime
// core emits through. Emit never blocks: frames go into a buffered send
// queue drained by the write loop, and a full queue or a closed connection
// is the caller's signal to count a delivery failure.
type Conn struct {
	log    *slog.Logger
	conn   *websocket.Conn
	send   chan frame
	closed chan struct{}
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
}

func newConn(log *slog.Logger, conn *websocket.Conn, sendBufferSize int) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		log:    log,
		conn:   conn,
		send:   make(chan frame, sendBufferSize),
		closed: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// requestContext is canceled once the connection closes, so work started on
// behalf of this peer does not outlive it.
func (c *Conn) requestContext() context.Context { return c.ctx }

func (c *Conn) Emit(event string, payload any) error {
	select {
	case <-c.closed:
		return apperrors.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame{Event: event, Payload: payload}:
		return nil
	case <-c.closed:
		return apperrors.ErrConnectionClosed
	default:
		return apperrors.ErrSendBufferFull
	}
}

// writeLoop is the only goroutine allowed to write to the socket. It drains
// the send queue and keeps the peer alive with periodic pings.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(f); err != nil {
				c.log.Debug("Write failed, closing connection", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.closed)
		c.cancel()
		_ = c.conn.Close()
	})
}
