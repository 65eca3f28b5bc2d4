package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Ping interval; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound queue depth per connection. A peer that falls this far
	// behind is treated as dead.
	sendQueueSize = 64
)

var (
	ErrClientClosed  = errors.New("client connection closed")
	ErrSendQueueFull = errors.New("client send queue full")
)

// wsConn is the subset of *websocket.Conn the outbound side touches.
// Narrowed to an interface so tests can substitute an in-memory
// transport.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client owns the outbound half of one participant's connection. Every
// frame goes through a buffered queue drained by a single pump
// goroutine, so each recipient observes messages in exactly the order
// they were issued.
type Client struct {
	sessionID string
	userID    uint

	conn wsConn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(sessionID string, userID uint, conn wsConn) *Client {
	c := &Client{
		sessionID: sessionID,
		userID:    userID,
		conn:      conn,
		send:      make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
	}
	go c.writePump()
	return c
}

// enqueue hands a frame to the write pump without blocking. A full
// queue or a closed client is a delivery failure; the caller decides
// whether to evict.
func (c *Client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendQueueFull
	}
}

// writePump is the only goroutine allowed to write to the connection.
// It also keeps the connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				c.conn.Close()
				return
			}
		case <-c.done:
			c.flush()
			c.conn.Close()
			return
		}
	}
}

// flush drains frames that were already queued when the client was
// closed. Best effort: the first write error abandons the rest. A final
// notification such as a session deletion would otherwise be lost to
// the shutdown race.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

// close signals shutdown. The write pump flushes anything still queued
// and then closes the transport. Safe to call repeatedly.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
