package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// ReadWait bounds the silence between client frames; pings reset it.
	ReadWait = 5 * time.Minute
)

// Conn serialises writes to a websocket: gorilla allows one concurrent
// writer, and both the read loop and the broadcast pump write.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

func Wrap(conn *websocket.Conn) *Conn {
	return &Conn{Conn: conn}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(errMsg string, fields map[string]string) error {
	return c.WriteTyped(ErrorResponse{
		Event:  EventError,
		Error:  errMsg,
		Fields: fields,
	})
}

// ReadEnvelope reads one frame and peeks at its action. Only connection
// errors are returned; a frame that is not JSON yields an empty action.
func (c *Conn) ReadEnvelope() (RequestEnvelope, error) {
	_ = c.SetReadDeadline(time.Now().Add(ReadWait))
	_, data, err := c.ReadMessage()
	if err != nil {
		return RequestEnvelope{}, err
	}
	var env RequestEnvelope
	if json.Unmarshal(data, &env) != nil {
		return RequestEnvelope{Raw: data}, nil
	}
	env.Raw = data
	return env, nil
}
