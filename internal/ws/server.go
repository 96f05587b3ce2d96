package ws

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/charukaonline/uninest-sub000/internal/middleware"
	"github.com/charukaonline/uninest-sub000/internal/models"
)

// EventHandler is the chat core's surface for client-originated socket
// events: delivery acknowledgments and typing indicators.
type EventHandler interface {
	MarkDelivered(ctx context.Context, messageID, userID string) error
	RelayTyping(ctx context.Context, conversationID, userID string, typing bool)
}

// Server authenticates handshakes and hands accepted connections to the hub.
type Server struct {
	hub       *Hub
	events    EventHandler
	jwtSecret string
}

func NewServer(hub *Hub, events EventHandler, jwtSecret string) *Server {
	return &Server{hub: hub, events: events, jwtSecret: jwtSecret}
}

// Upgrade is the pre-upgrade middleware: it verifies the bearer credential
// once, before the connection is accepted. The token travels in the
// Authorization header or, for browser clients that cannot set headers on
// websocket requests, in the Sec-WebSocket-Protocol field as
// "bearer,<token>". Never in the query string.
func (s *Server) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		if proto := c.Get("Sec-Websocket-Protocol"); strings.HasPrefix(proto, "bearer,") {
			token = strings.TrimSpace(strings.TrimPrefix(proto, "bearer,"))
		}
	}
	if token == "" {
		return fiber.ErrUnauthorized
	}

	userID, err := middleware.VerifyToken(s.jwtSecret, token)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	c.Locals("userID", userID)
	return c.Next()
}

// Handler runs for each accepted connection: join the user's private group,
// then pump frames until the peer goes away.
func (s *Server) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		if userID == "" {
			_ = conn.Close()
			return
		}

		c := &Connection{
			id:     uuid.NewString(),
			userID: userID,
			ws:     conn,
			send:   make(chan models.WSEvent, sendBuffer),
			done:   make(chan struct{}),
			hub:    s.hub,
			events: s.events,
		}
		s.hub.register(c)
		go c.writePump()
		c.readPump()
	})
}
