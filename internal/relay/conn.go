package relay

import (
	"sync"

	"github.com/gorilla/websocket"
)

// conn wraps a websocket.Conn with a write mutex.
// gorilla/websocket does NOT support concurrent writes.
type conn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}

func (c *conn) writeClose(code int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text))
}
