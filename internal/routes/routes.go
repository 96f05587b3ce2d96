package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/charukaonline/uninest-sub000/internal/handlers"
	"github.com/charukaonline/uninest-sub000/internal/metrics"
	"github.com/charukaonline/uninest-sub000/internal/middleware"
	"github.com/charukaonline/uninest-sub000/internal/ws"
)

// Register wires the REST surface, the websocket upgrade and the ops
// endpoints onto the app.
func Register(app *fiber.App, chat *handlers.ChatHandler, wsServer *ws.Server, jwtSecret string, limiter *middleware.RateLimiter) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Get("/ws", wsServer.Upgrade, wsServer.Handler())

	api := app.Group("/api/chat", middleware.JWTAuth(jwtSecret))
	api.Get("/conversations", chat.ListConversations)
	api.Post("/conversations", chat.CreateConversation)
	api.Get("/conversations/:id/messages", chat.GetMessages)
	api.Put("/conversations/:id/read", chat.MarkRead)
	api.Post("/messages", limiter.ByCaller(), chat.SendMessage)
	api.Get("/unread-count", chat.UnreadCount)
}
