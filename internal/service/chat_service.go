// Package service implements the chat core: conversation find-or-create,
// the message pipeline, and the read/delivery status tracking. The durable
// store is authoritative; the cache and the websocket hub are best-effort
// layers around it.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/charukaonline/uninest-sub000/internal/apperr"
	"github.com/charukaonline/uninest-sub000/internal/cache"
	"github.com/charukaonline/uninest-sub000/internal/directory"
	"github.com/charukaonline/uninest-sub000/internal/metrics"
	"github.com/charukaonline/uninest-sub000/internal/models"
	"github.com/charukaonline/uninest-sub000/internal/notify"
	"github.com/charukaonline/uninest-sub000/internal/repository"
)

// Publisher pushes an event into a user's private websocket group.
// Implemented by ws.Hub; fire-and-forget.
type Publisher interface {
	Publish(userID string, event models.WSEvent)
}

// ChatService ties the store, the cache, the hub and the collaborator
// services together. One instance is built at startup and injected wherever
// chat operations are needed.
type ChatService struct {
	repo         repository.ChatRepository
	cache        cache.ChatCache
	dir          directory.Directory
	notifier     notify.Notifier
	hub          Publisher
	log          *zap.SugaredLogger
	storeTimeout time.Duration
	sideTimeout  time.Duration
}

func NewChatService(
	repo repository.ChatRepository,
	chatCache cache.ChatCache,
	dir directory.Directory,
	notifier notify.Notifier,
	hub Publisher,
	log *zap.SugaredLogger,
	storeTimeout time.Duration,
) *ChatService {
	return &ChatService{
		repo:         repo,
		cache:        chatCache,
		dir:          dir,
		notifier:     notifier,
		hub:          hub,
		log:          log,
		storeTimeout: storeTimeout,
		sideTimeout:  5 * time.Second,
	}
}

func (s *ChatService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// ListConversations returns the caller's threads, most recently active
// first, each enriched with the other participant's profile, the listing
// summary, the last-message preview and the caller's own unread counter.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]*models.ConversationView, error) {
	if views, ok := s.cache.GetConversations(ctx, userID); ok {
		return views, nil
	}

	sctx, cancel := s.bounded(ctx)
	defer cancel()
	convs, err := s.repo.ListConversations(sctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*models.ConversationView, 0, len(convs))
	for _, conv := range convs {
		views = append(views, s.buildView(ctx, conv, userID))
	}
	s.cache.SetConversations(ctx, userID, views)
	return views, nil
}

func (s *ChatService) buildView(ctx context.Context, conv *models.Conversation, userID string) *models.ConversationView {
	view := &models.ConversationView{
		ID:          conv.ID.Hex(),
		UnreadCount: conv.UnreadFor(userID),
		UpdatedAt:   conv.UpdatedAt,
	}

	if other := conv.OtherParticipant(userID); other != "" {
		profile, err := s.dir.GetUserProfile(ctx, other)
		if err != nil {
			s.log.Warnw("profile lookup failed", "user", other, "err", err)
		} else {
			view.Recipient = profile
		}
	}
	if conv.ListingID != "" {
		listing, err := s.dir.GetListing(ctx, conv.ListingID)
		if err != nil {
			s.log.Warnw("listing lookup failed", "listing", conv.ListingID, "err", err)
		} else {
			view.Listing = listing
		}
	}
	if !conv.LastMessageID.IsZero() {
		sctx, cancel := s.bounded(ctx)
		msg, err := s.repo.GetMessage(sctx, conv.LastMessageID)
		cancel()
		if err != nil {
			s.log.Warnw("last message lookup failed", "conversation", view.ID, "err", err)
		} else {
			view.LastMessage = msg
		}
	}
	return view
}

// CreateConversation finds or creates the thread between the caller and the
// recipient (optionally scoped to a listing) and sends the initial message
// when one is supplied.
func (s *ChatService) CreateConversation(ctx context.Context, senderID, recipientID, listingID, initialMessage string) (*models.ConversationView, error) {
	if recipientID == "" {
		return nil, apperr.Validationf("recipient id is required")
	}
	if recipientID == senderID {
		return nil, fmt.Errorf("%w: cannot start a conversation with yourself", apperr.ErrForbidden)
	}

	// Delegated existence checks; unknown recipient or listing is a 404.
	if _, err := s.dir.GetUserProfile(ctx, recipientID); err != nil {
		return nil, err
	}
	if listingID != "" {
		if _, err := s.dir.GetListing(ctx, listingID); err != nil {
			return nil, err
		}
	}

	sctx, cancel := s.bounded(ctx)
	conv, created, err := s.repo.FindOrCreateConversation(sctx, senderID, recipientID, listingID)
	cancel()
	if err != nil {
		return nil, err
	}
	if created {
		metrics.ConversationsCreated.Inc()
	}

	if text := strings.TrimSpace(initialMessage); text != "" {
		if _, err := s.send(ctx, conv, senderID, text, created); err != nil {
			return nil, err
		}
		// Re-read so the view carries the fresh last-message reference.
		sctx, cancel := s.bounded(ctx)
		conv, err = s.repo.GetConversation(sctx, conv.ID)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	s.cache.InvalidateConversations(ctx, senderID, recipientID)
	return s.buildView(ctx, conv, senderID), nil
}

// Send runs the message pipeline for an existing conversation.
func (s *ChatService) Send(ctx context.Context, conversationID, senderID, text string) (*models.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperr.Validationf("message text is required")
	}
	conv, err := s.authorizedConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, conv, senderID, trimmed, false)
}

// send commits the message atomically with the conversation metadata update,
// then runs the side effects: synchronous cache invalidation (read-after-
// write correctness), detached websocket publish and notification (best
// effort, logged on failure, never awaited).
func (s *ChatService) send(ctx context.Context, conv *models.Conversation, senderID, text string, newConversation bool) (*models.Message, error) {
	recipientID := conv.OtherParticipant(senderID)

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
	}
	sctx, cancel := s.bounded(ctx)
	msg, err := s.repo.InsertMessage(sctx, msg, recipientID)
	cancel()
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	s.cache.InvalidateMessages(ctx, conv.ID.Hex())
	s.cache.InvalidateConversations(ctx, conv.Participants...)

	sender, perr := s.dir.GetUserProfile(ctx, senderID)
	if perr != nil {
		s.log.Warnw("sender profile lookup failed", "user", senderID, "err", perr)
	} else {
		msg.Sender = sender
	}

	go s.fanOut(conv.ID.Hex(), msg, recipientID, sender, newConversation)
	return msg, nil
}

// fanOut runs after the commit, detached from the caller's request.
func (s *ChatService) fanOut(conversationID string, msg *models.Message, recipientID string, sender *models.UserProfile, newConversation bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sideTimeout)
	defer cancel()

	if newConversation {
		s.hub.Publish(recipientID, models.WSEvent{
			Type:    models.EventNewConversation,
			Payload: models.NewConversationEvent{ConversationID: conversationID, Sender: sender},
		})
	}
	s.hub.Publish(recipientID, models.WSEvent{
		Type:    models.EventNewMessage,
		Payload: models.NewMessageEvent{ConversationID: conversationID, Message: msg},
	})

	if err := s.notifier.Notify(ctx, buildNotification(recipientID, conversationID, sender, msg.Text)); err != nil {
		s.log.Warnw("notification failed", "recipient", recipientID, "err", err)
	}
}

func buildNotification(recipientID, conversationID string, sender *models.UserProfile, text string) *models.Notification {
	from := "Someone"
	if sender != nil {
		from = sender.Username
	}
	preview := text
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	return &models.Notification{
		UserID:    recipientID,
		Type:      "new_message",
		Title:     "New Message",
		Message:   fmt.Sprintf("%s sent you a message: %q", from, preview),
		RelatedID: conversationID,
		RefModel:  "Conversation",
	}
}

// GetMessages returns a conversation's history for a participant, marking
// the caller's unread messages read as a detached side effect.
func (s *ChatService) GetMessages(ctx context.Context, conversationID, userID string) ([]*models.Message, error) {
	conv, err := s.authorizedConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	if msgs, ok := s.cache.GetMessages(ctx, conv.ID.Hex()); ok {
		go s.markReadDetached(conv, userID)
		return msgs, nil
	}

	sctx, cancel := s.bounded(ctx)
	msgs, err := s.repo.ListMessages(sctx, conv.ID)
	cancel()
	if err != nil {
		return nil, err
	}
	s.attachSenders(ctx, conv, msgs)
	s.cache.SetMessages(ctx, conv.ID.Hex(), msgs)

	go s.markReadDetached(conv, userID)
	return msgs, nil
}

// attachSenders resolves the two participant profiles once and stamps them
// onto the messages.
func (s *ChatService) attachSenders(ctx context.Context, conv *models.Conversation, msgs []*models.Message) {
	profiles := make(map[string]*models.UserProfile, 2)
	for _, p := range conv.Participants {
		profile, err := s.dir.GetUserProfile(ctx, p)
		if err != nil {
			s.log.Warnw("profile lookup failed", "user", p, "err", err)
			continue
		}
		profiles[p] = profile
	}
	for _, m := range msgs {
		m.Sender = profiles[m.SenderID]
	}
}

func (s *ChatService) markReadDetached(conv *models.Conversation, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sideTimeout)
	defer cancel()
	if err := s.markRead(ctx, conv, userID); err != nil {
		s.log.Warnw("background read-status update failed", "conversation", conv.ID.Hex(), "err", err)
	}
}

// MarkRead flips the caller's unread messages in a conversation to read and
// zeroes the caller's unread counter.
func (s *ChatService) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := s.authorizedConversation(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	return s.markRead(ctx, conv, userID)
}

func (s *ChatService) markRead(ctx context.Context, conv *models.Conversation, userID string) error {
	sctx, cancel := s.bounded(ctx)
	_, err := s.repo.MarkConversationRead(sctx, conv.ID, userID)
	cancel()
	if err != nil {
		return err
	}

	// Statuses changed: the history cache is stale for both sides, the list
	// cache only for the reader (the other side's preview is unchanged).
	s.cache.InvalidateMessages(ctx, conv.ID.Hex())
	s.cache.InvalidateConversations(ctx, userID)

	if other := conv.OtherParticipant(userID); other != "" {
		s.hub.Publish(other, models.WSEvent{
			Type:    models.EventMessagesRead,
			Payload: models.MessagesReadEvent{ConversationID: conv.ID.Hex(), ReadBy: userID},
		})
	}
	return nil
}

// MarkDelivered acknowledges receipt of a single message; sent -> delivered
// only, later states win.
func (s *ChatService) MarkDelivered(ctx context.Context, messageID, userID string) error {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return apperr.Validationf("malformed message id")
	}
	sctx, cancel := s.bounded(ctx)
	msg, err := s.repo.GetMessage(sctx, oid)
	cancel()
	if err != nil {
		return err
	}
	// Delivery acks only make sense from the recipient; nobody else may
	// advance the status.
	if msg.SenderID == userID {
		return apperr.ErrForbidden
	}
	sctx, cancel = s.bounded(ctx)
	conv, err := s.repo.GetConversation(sctx, msg.ConversationID)
	cancel()
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return apperr.ErrForbidden
	}
	sctx, cancel = s.bounded(ctx)
	msg, err = s.repo.MarkMessageDelivered(sctx, oid)
	cancel()
	if err != nil {
		return err
	}
	s.cache.InvalidateMessages(ctx, msg.ConversationID.Hex())
	s.hub.Publish(msg.SenderID, models.WSEvent{
		Type:    models.EventMessageStatusUpdate,
		Payload: models.MessageStatusEvent{MessageID: messageID, Status: msg.Status},
	})
	return nil
}

// UnreadTotal sums the caller's unread counters across every conversation.
func (s *ChatService) UnreadTotal(ctx context.Context, userID string) (int64, error) {
	sctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.repo.UnreadTotal(sctx, userID)
}

// RelayTyping forwards a typing indicator to the other participant. Purely
// transient: nothing is stored.
func (s *ChatService) RelayTyping(ctx context.Context, conversationID, userID string, typing bool) {
	conv, err := s.authorizedConversation(ctx, conversationID, userID)
	if err != nil {
		return
	}
	other := conv.OtherParticipant(userID)
	if other == "" {
		return
	}
	eventType := models.EventUserTyping
	if !typing {
		eventType = models.EventUserStoppedTyping
	}
	s.hub.Publish(other, models.WSEvent{
		Type:    eventType,
		Payload: models.TypingEvent{ConversationID: conversationID, UserID: userID},
	})
}

// authorizedConversation loads a conversation and enforces participation.
func (s *ChatService) authorizedConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, apperr.Validationf("malformed conversation id")
	}
	sctx, cancel := s.bounded(ctx)
	defer cancel()
	conv, err := s.repo.GetConversation(sctx, oid)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", apperr.ErrForbidden)
	}
	return conv, nil
}
