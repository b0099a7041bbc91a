package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// callers are authenticated by token before the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection bound to a subscriber.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	subscriberID uuid.UUID
	send         chan []byte
	logg         *logger.Logger
}

// readPump only watches for disconnects; clients never send data.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.logg != nil {
				c.logg.Warn(ctx, fmt.Sprintf("feed connection closed: %v", err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// coalesce queued frames into this message
			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Serve upgrades the request and streams subscriberID's events until the
// connection drops. Authentication happens before Serve is called.
func Serve(hub *Hub, logg *logger.Logger, subscriberID uuid.UUID, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	client := &Client{
		hub:          hub,
		conn:         conn,
		subscriberID: subscriberID,
		send:         make(chan []byte, sendBuffer),
		logg:         logg,
	}
	if !hub.attach(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return nil
	}

	ctx := context.WithoutCancel(r.Context())
	if logg != nil {
		ctx = logg.WithField(ctx, "subscriber_id", subscriberID.String())
	}
	go client.writePump()
	go client.readPump(ctx)
	return nil
}
