package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/charukaonline/uninest-sub000/internal/apperr"
	"github.com/charukaonline/uninest-sub000/internal/middleware"
	"github.com/charukaonline/uninest-sub000/internal/models"
)

// ChatAPI is the slice of the chat core the REST surface needs.
type ChatAPI interface {
	ListConversations(ctx context.Context, userID string) ([]*models.ConversationView, error)
	CreateConversation(ctx context.Context, senderID, recipientID, listingID, initialMessage string) (*models.ConversationView, error)
	Send(ctx context.Context, conversationID, senderID, text string) (*models.Message, error)
	GetMessages(ctx context.Context, conversationID, userID string) ([]*models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID string) error
	UnreadTotal(ctx context.Context, userID string) (int64, error)
}

type ChatHandler struct {
	chat ChatAPI
	log  *zap.SugaredLogger
}

func NewChatHandler(chat ChatAPI, log *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

func (h *ChatHandler) fail(c *fiber.Ctx, err error) error {
	status := apperr.StatusCode(err)
	if status == fiber.StatusInternalServerError {
		h.log.Errorw("request failed", "path", c.Path(), "err", err)
		return c.Status(status).JSON(fiber.Map{"error": "server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// GET /api/chat/conversations
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	views, err := h.chat.ListConversations(c.Context(), middleware.CallerID(c))
	if err != nil {
		return h.fail(c, err)
	}
	if views == nil {
		views = []*models.ConversationView{}
	}
	return c.JSON(views)
}

type createConversationRequest struct {
	RecipientID    string `json:"recipientId"`
	ListingID      string `json:"listingId"`
	InitialMessage string `json:"initialMessage"`
}

// POST /api/chat/conversations
func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, apperr.Validationf("malformed request body"))
	}
	view, err := h.chat.CreateConversation(c.Context(), middleware.CallerID(c), req.RecipientID, req.ListingID, req.InitialMessage)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

// POST /api/chat/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, apperr.Validationf("malformed request body"))
	}
	msg, err := h.chat.Send(c.Context(), req.ConversationID, middleware.CallerID(c), req.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GET /api/chat/conversations/:id/messages
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	msgs, err := h.chat.GetMessages(c.Context(), c.Params("id"), middleware.CallerID(c))
	if err != nil {
		return h.fail(c, err)
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return c.JSON(msgs)
}

// PUT /api/chat/conversations/:id/read
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.chat.MarkRead(c.Context(), c.Params("id"), middleware.CallerID(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "messages marked as read"})
}

// GET /api/chat/unread-count
func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	total, err := h.chat.UnreadTotal(c.Context(), middleware.CallerID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"unreadCount": total})
}
