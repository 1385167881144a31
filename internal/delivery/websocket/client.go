package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"duotaire-backend/internal/config"
	"duotaire-backend/internal/logger"
	"duotaire-backend/internal/room"
)

const writeWait = 10 * time.Second

// Client is one player connection. It implements room.Conn: a buffered send
// channel drained by a single writer goroutine. Under back-pressure, state
// updates may be dropped; vital frames (game_started, game_over) never are.
type Client struct {
	id   string
	conn *websocket.Conn
	cfg  *config.Config
	log  *zap.Logger

	send      chan any
	closed    chan struct{}
	closeOnce sync.Once
	alive     atomic.Bool

	// Mutable room slot, written by the room loop on seat/unseat and read
	// by the reader goroutine when routing game intents.
	mu     sync.Mutex
	bound  *room.Room
	isHost bool
}

func newClient(conn *websocket.Conn, cfg *config.Config) *Client {
	c := &Client{
		id:     uuid.New().String(),
		conn:   conn,
		cfg:    cfg,
		send:   make(chan any, cfg.SendBufferSize),
		closed: make(chan struct{}),
	}
	c.alive.Store(true)
	c.log = logger.WithRoomContext("", c.id)
	return c
}

// SessionID returns the opaque transport handle for this connection.
func (c *Client) SessionID() string {
	return c.id
}

// Alive reports whether the connection is still usable.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// Send queues a frame best-effort. A full buffer drops the frame rather than
// blocking the room loop; the client recovers by requesting a snapshot.
func (c *Client) Send(msg any) {
	select {
	case <-c.closed:
	case c.send <- msg:
	default:
		c.log.Warn("send buffer full, dropping frame")
	}
}

// SendVital queues a frame that must not be dropped. If the peer cannot
// drain the buffer within the timeout the connection is considered dead.
func (c *Client) SendVital(msg any) {
	timer := time.NewTimer(c.cfg.VitalSendTimeout)
	defer timer.Stop()
	select {
	case <-c.closed:
	case c.send <- msg:
	case <-timer.C:
		c.log.Warn("vital send timed out, closing connection")
		c.Close()
	}
}

// AttachRoom records the room that seated this connection.
func (c *Client) AttachRoom(r *room.Room, host bool) {
	c.mu.Lock()
	c.bound = r
	c.isHost = host
	c.mu.Unlock()
}

// DetachRoom clears the binding if it still points at r.
func (c *Client) DetachRoom(r *room.Room) {
	c.mu.Lock()
	if c.bound == r {
		c.bound = nil
		c.isHost = false
	}
	c.mu.Unlock()
}

// Room returns the currently bound room, nil when not seated.
func (c *Client) Room() *room.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		close(c.closed)
		_ = c.conn.Close()
	})
}

// writePump serializes all outbound frames for this connection.
func (c *Client) writePump() {
	defer c.Close()
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}
