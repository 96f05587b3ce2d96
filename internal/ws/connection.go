package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/charukaonline/uninest-sub000/internal/models"
)

const (
	readLimit    = 32 * 1024
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
)

// Connection is one live websocket belonging to a user's group. The send
// channel is never closed: publishers may still hold a reference after the
// connection is unregistered, so shutdown is signalled through done instead
// and the channel is left for the collector.
type Connection struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan models.WSEvent
	done   chan struct{}
	hub    *Hub
	events EventHandler
}

// inboundFrame is the client-to-server envelope.
type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Ignore malformed frames rather than dropping the connection.
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Connection) dispatch(frame inboundFrame) {
	ctx := context.Background()
	switch frame.Type {
	case "message_delivered":
		var p struct {
			MessageID string `json:"messageId"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.MessageID == "" {
			return
		}
		if err := c.events.MarkDelivered(ctx, p.MessageID, c.userID); err != nil {
			c.hub.log.Debugw("delivery ack failed", "message", p.MessageID, "err", err)
		}
	case "typing", "stop_typing":
		var p struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.ConversationID == "" {
			return
		}
		c.events.RelayTyping(ctx, p.ConversationID, c.userID, frame.Type == "typing")
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
			return
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
