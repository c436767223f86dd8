package bridge

import (
	"net"
	"sync"
)

// Connection is the state shared between the connection handler, which
// attaches and detaches the client, and the poller, which forwards device
// frames to whichever client is attached.
type Connection struct {
	mu       sync.Mutex
	attached bool
	conn     net.Conn
}

func (c *Connection) attach(conn net.Conn) {
	c.mu.Lock()
	c.attached = true
	c.conn = conn
	c.mu.Unlock()
}

func (c *Connection) detach() {
	c.mu.Lock()
	c.attached = false
	c.conn = nil
	c.mu.Unlock()
}

// Attached reports whether a client is currently attached.
func (c *Connection) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

func (c *Connection) snapshot() (net.Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.attached
}
