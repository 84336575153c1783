package ws

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// Dial opens the event channel of a chat server, e.g. ws://localhost:3000/ws.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	ws.SetReadLimit(maxMessageSize)
	return &Conn{ws: ws}, nil
}
