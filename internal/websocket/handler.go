package websocket

import (
	"context"

	"locus/internal/service"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs the socket session of one peer until it disconnects.
func ServeWs(ctx context.Context, hub *Hub, c *websocket.Conn, userName string, chat service.IChatService) {
	client := newClient(hub, c, userName, chat)
	if !hub.add(client) {
		c.Close()
		return
	}

	written := make(chan struct{})
	go func() {
		defer close(written)
		client.writePump()
	}()
	client.readPump(ctx)

	// The connection is released when this returns.
	<-written
}
