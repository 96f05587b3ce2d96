package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/charukaonline/uninest-sub000/internal/apperr"
	"github.com/charukaonline/uninest-sub000/internal/cache"
	"github.com/charukaonline/uninest-sub000/internal/models"
)

// fakeRepo is an in-memory stand-in for the Mongo store with the same
// atomicity semantics: InsertMessage applies the message and the
// conversation update together or not at all.
type fakeRepo struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation // by pair key
	byID          map[primitive.ObjectID]*models.Conversation
	messages      []*models.Message
	failInsert    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		conversations: make(map[string]*models.Conversation),
		byID:          make(map[primitive.ObjectID]*models.Conversation),
	}
}

func (r *fakeRepo) FindOrCreateConversation(_ context.Context, userA, userB, listingID string) (*models.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := models.PairKey(userA, userB, listingID)
	if conv, ok := r.conversations[key]; ok {
		return cloneConv(conv), false, nil
	}
	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: []string{userA, userB},
		PairKey:      key,
		ListingID:    listingID,
		UnreadCount:  map[string]int64{userA: 0, userB: 0},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.conversations[key] = conv
	r.byID[conv.ID] = conv
	return cloneConv(conv), true, nil
}

func (r *fakeRepo) GetConversation(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneConv(conv), nil
}

func (r *fakeRepo) ListConversations(_ context.Context, userID string) ([]*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Conversation
	for _, conv := range r.byID {
		if conv.HasParticipant(userID) {
			out = append(out, cloneConv(conv))
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertMessage(_ context.Context, msg *models.Message, recipientID string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsert != nil {
		return nil, r.failInsert
	}
	conv, ok := r.byID[msg.ConversationID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	msg.ID = primitive.NewObjectID()
	msg.Status = models.StatusSent
	msg.CreatedAt = time.Now().UTC()
	stored := *msg
	r.messages = append(r.messages, &stored)
	conv.LastMessageID = msg.ID
	conv.UpdatedAt = msg.CreatedAt
	conv.UnreadCount[recipientID]++
	return msg, nil
}

func (r *fakeRepo) ListMessages(_ context.Context, conversationID primitive.ObjectID) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetMessage(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *fakeRepo) MarkConversationRead(_ context.Context, conversationID primitive.ObjectID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[conversationID]
	if !ok {
		return 0, apperr.ErrNotFound
	}
	var n int64
	now := time.Now().UTC()
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.SenderID != userID && m.Status != models.StatusRead {
			m.Status = models.StatusRead
			m.ReadAt = &now
			n++
		}
	}
	conv.UnreadCount[userID] = 0
	return n, nil
}

func (r *fakeRepo) MarkMessageDelivered(_ context.Context, messageID primitive.ObjectID) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == messageID {
			if m.Status == models.StatusSent {
				m.Status = models.StatusDelivered
			}
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *fakeRepo) UnreadTotal(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, conv := range r.byID {
		if conv.HasParticipant(userID) {
			total += conv.UnreadCount[userID]
		}
	}
	return total, nil
}

func (r *fakeRepo) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func cloneConv(c *models.Conversation) *models.Conversation {
	copied := *c
	copied.Participants = append([]string(nil), c.Participants...)
	copied.UnreadCount = make(map[string]int64, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		copied.UnreadCount[k] = v
	}
	return &copied
}

// mapCache implements cache.ChatCache over plain maps and records
// invalidations so tests can assert write-path behavior.
type mapCache struct {
	mu            sync.Mutex
	conversations map[string][]*models.ConversationView
	messages      map[string][]*models.Message
	invalidations int
}

func newMapCache() *mapCache {
	return &mapCache{
		conversations: make(map[string][]*models.ConversationView),
		messages:      make(map[string][]*models.Message),
	}
}

func (c *mapCache) GetConversations(_ context.Context, userID string) ([]*models.ConversationView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.conversations[userID]
	return v, ok
}

func (c *mapCache) SetConversations(_ context.Context, userID string, views []*models.ConversationView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversations[userID] = views
}

func (c *mapCache) GetMessages(_ context.Context, conversationID string) ([]*models.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.messages[conversationID]
	return v, ok
}

func (c *mapCache) SetMessages(_ context.Context, conversationID string, msgs []*models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[conversationID] = msgs
}

func (c *mapCache) InvalidateMessages(_ context.Context, conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.messages, conversationID)
	c.invalidations++
}

func (c *mapCache) InvalidateConversations(_ context.Context, userIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.conversations, id)
	}
	c.invalidations++
}

func (c *mapCache) invalidationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}

type fakeDirectory struct {
	users    map[string]*models.UserProfile
	listings map[string]*models.ListingSummary
}

func newFakeDirectory(userIDs ...string) *fakeDirectory {
	d := &fakeDirectory{
		users:    make(map[string]*models.UserProfile),
		listings: make(map[string]*models.ListingSummary),
	}
	for _, id := range userIDs {
		d.users[id] = &models.UserProfile{ID: id, Username: "user-" + id}
	}
	return d
}

func (d *fakeDirectory) GetUserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	if u, ok := d.users[userID]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

func (d *fakeDirectory) GetListing(_ context.Context, listingID string) (*models.ListingSummary, error) {
	if l, ok := d.listings[listingID]; ok {
		return l, nil
	}
	return nil, apperr.ErrNotFound
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, notification *models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type publishedEvent struct {
	userID string
	event  models.WSEvent
}

type fakeHub struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (h *fakeHub) Publish(userID string, event models.WSEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, publishedEvent{userID: userID, event: event})
}

func (h *fakeHub) eventsFor(userID string) []models.WSEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.WSEvent
	for _, e := range h.events {
		if e.userID == userID {
			out = append(out, e.event)
		}
	}
	return out
}

func hasEvent(events []models.WSEvent, eventType string) bool {
	for _, e := range events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

type fixture struct {
	svc      *ChatService
	repo     *fakeRepo
	cache    *mapCache
	dir      *fakeDirectory
	notifier *fakeNotifier
	hub      *fakeHub
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newFakeRepo(),
		cache:    newMapCache(),
		dir:      newFakeDirectory(users...),
		notifier: &fakeNotifier{},
		hub:      &fakeHub{},
	}
	f.svc = NewChatService(f.repo, f.cache, f.dir, f.notifier, f.hub, zap.NewNop().Sugar(), time.Second)
	return f
}

func TestCreateConversationDeduplicates(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	first, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)
	second, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Same pair, initiated from the other side.
	third, err := f.svc.CreateConversation(ctx, "u2", "u1", "", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
}

func TestCreateConversationListingScoped(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	f.dir.listings["l1"] = &models.ListingSummary{ID: "l1", PropertyName: "Campus Loft"}
	ctx := context.Background()

	plain, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)
	scoped, err := f.svc.CreateConversation(ctx, "u1", "u2", "l1", "")
	require.NoError(t, err)
	assert.NotEqual(t, plain.ID, scoped.ID)
	require.NotNil(t, scoped.Listing)
	assert.Equal(t, "Campus Loft", scoped.Listing.PropertyName)
}

func TestCreateConversationConcurrent(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "u1", "u2"
			if i%2 == 0 {
				a, b = b, a
			}
			view, err := f.svc.CreateConversation(ctx, a, b, "", "")
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = view.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
	for i := 1; i < n; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestCreateConversationRejectsSelf(t *testing.T) {
	f := newFixture(t, "u1")
	_, err := f.svc.CreateConversation(context.Background(), "u1", "u1", "", "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreateConversationUnknownRecipient(t *testing.T) {
	f := newFixture(t, "u1")
	_, err := f.svc.CreateConversation(context.Background(), "u1", "ghost", "", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateConversationUnknownListing(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	_, err := f.svc.CreateConversation(context.Background(), "u1", "u2", "missing", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInitialMessageScenario(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "hi")
	require.NoError(t, err)
	require.NotNil(t, view.LastMessage)
	assert.Equal(t, "hi", view.LastMessage.Text)
	// The caller's own counter stays at zero.
	assert.Equal(t, int64(0), view.UnreadCount)

	oid, err := primitive.ObjectIDFromHex(view.ID)
	require.NoError(t, err)
	conv, err := f.repo.GetConversation(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), conv.UnreadFor("u2"))

	// Recipient learns of the thread and the message.
	require.Eventually(t, func() bool {
		events := f.hub.eventsFor("u2")
		return hasEvent(events, models.EventNewConversation) && hasEvent(events, models.EventNewMessage)
	}, time.Second, 10*time.Millisecond)

	// Recipient fetches the history; the read side effect zeroes the counter.
	msgs, err := f.svc.GetMessages(ctx, view.ID, "u2")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)

	require.Eventually(t, func() bool {
		conv, err := f.repo.GetConversation(ctx, oid)
		return err == nil && conv.UnreadFor("u2") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestUnreadAccounting(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Send(ctx, view.ID, "u1", "message")
		require.NoError(t, err)
	}

	totalB, err := f.svc.UnreadTotal(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), totalB)

	totalA, err := f.svc.UnreadTotal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), totalA)

	require.NoError(t, f.svc.MarkRead(ctx, view.ID, "u2"))
	totalB, err = f.svc.UnreadTotal(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), totalB)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, view.ID, "u1", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Send(ctx, "not-an-id", "u1", "hello")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSendRequiresParticipation(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, view.ID, "u3", "let me in")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSendAtomicFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)
	invalidationsBefore := f.cache.invalidationCount()

	f.repo.failInsert = errors.New("primary stepped down")
	_, err = f.svc.Send(ctx, view.ID, "u1", "doomed")
	require.Error(t, err)

	// No message, no metadata change, no unread bump.
	assert.Equal(t, 0, f.repo.messageCount())
	oid, _ := primitive.ObjectIDFromHex(view.ID)
	conv, err := f.repo.GetConversation(ctx, oid)
	require.NoError(t, err)
	assert.True(t, conv.LastMessageID.IsZero())
	assert.Equal(t, int64(0), conv.UnreadFor("u2"))

	// No side effects either: caches untouched, nothing published.
	assert.Equal(t, invalidationsBefore, f.cache.invalidationCount())
	assert.Empty(t, f.hub.eventsFor("u2"))
	assert.Equal(t, 0, f.notifier.count())

	// The failure was transient; a retry succeeds cleanly.
	f.repo.failInsert = nil
	_, err = f.svc.Send(ctx, view.ID, "u1", "take two")
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.messageCount())
}

func TestSendFansOutToRecipient(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)

	msg, err := f.svc.Send(ctx, view.ID, "u1", "hello there")
	require.NoError(t, err)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "user-u1", msg.Sender.Username)

	require.Eventually(t, func() bool {
		return hasEvent(f.hub.eventsFor("u2"), models.EventNewMessage)
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return f.notifier.count() == 1
	}, time.Second, 10*time.Millisecond)
	// Nothing is pushed at the sender.
	assert.False(t, hasEvent(f.hub.eventsFor("u1"), models.EventNewMessage))
}

func TestMarkReadNotifiesOtherParticipant(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "hi")
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRead(ctx, view.ID, "u2"))
	assert.True(t, hasEvent(f.hub.eventsFor("u1"), models.EventMessagesRead))

	// Messages carry read state and a read timestamp now.
	msgs, err := f.svc.GetMessages(ctx, view.ID, "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.StatusRead, msgs[0].Status)
	assert.NotNil(t, msgs[0].ReadAt)
}

func TestMarkDeliveredMonotonic(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)
	msg, err := f.svc.Send(ctx, view.ID, "u1", "ping")
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkDelivered(ctx, msg.ID.Hex(), "u2"))
	stored, err := f.repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, stored.Status)

	// Sender is told about the delivery.
	assert.True(t, hasEvent(f.hub.eventsFor("u1"), models.EventMessageStatusUpdate))

	// A late ack after the read never regresses the status.
	require.NoError(t, f.svc.MarkRead(ctx, view.ID, "u2"))
	require.NoError(t, f.svc.MarkDelivered(ctx, msg.ID.Hex(), "u2"))
	stored, err = f.repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, stored.Status)
}

func TestMarkDeliveredRequiresRecipient(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)
	msg, err := f.svc.Send(ctx, view.ID, "u1", "ping")
	require.NoError(t, err)

	// The sender acking their own message does not advance the status.
	err = f.svc.MarkDelivered(ctx, msg.ID.Hex(), "u1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Neither does an authenticated stranger to the conversation.
	err = f.svc.MarkDelivered(ctx, msg.ID.Hex(), "u3")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stored, err := f.repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, stored.Status)
	assert.False(t, hasEvent(f.hub.eventsFor("u1"), models.EventMessageStatusUpdate))
}

func TestCacheTransparency(t *testing.T) {
	// The same operations against a warm cache and against no cache at all
	// must produce identical reads.
	run := func(t *testing.T, c cache.ChatCache) ([]*models.ConversationView, []*models.Message) {
		repo := newFakeRepo()
		dir := newFakeDirectory("u1", "u2")
		svc := NewChatService(repo, c, dir, &fakeNotifier{}, &fakeHub{}, zap.NewNop().Sugar(), time.Second)
		ctx := context.Background()

		view, err := svc.CreateConversation(ctx, "u1", "u2", "", "hi")
		require.NoError(t, err)
		_, err = svc.Send(ctx, view.ID, "u2", "hi yourself")
		require.NoError(t, err)

		// Double reads so the cached run serves its second read from cache.
		_, err = svc.ListConversations(ctx, "u1")
		require.NoError(t, err)
		views, err := svc.ListConversations(ctx, "u1")
		require.NoError(t, err)
		_, err = svc.GetMessages(ctx, view.ID, "u1")
		require.NoError(t, err)
		msgs, err := svc.GetMessages(ctx, view.ID, "u1")
		require.NoError(t, err)
		return views, msgs
	}

	cachedViews, cachedMsgs := run(t, newMapCache())
	plainViews, plainMsgs := run(t, cache.Disabled{})

	require.Len(t, cachedViews, len(plainViews))
	for i := range cachedViews {
		assert.Equal(t, plainViews[i].Recipient, cachedViews[i].Recipient)
		assert.Equal(t, plainViews[i].UnreadCount, cachedViews[i].UnreadCount)
	}
	require.Len(t, cachedMsgs, len(plainMsgs))
	for i := range cachedMsgs {
		assert.Equal(t, plainMsgs[i].Text, cachedMsgs[i].Text)
		assert.Equal(t, plainMsgs[i].SenderID, cachedMsgs[i].SenderID)
	}
}

func TestListConversationsOwnCounterOnly(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, view.ID, "u1", "one")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, view.ID, "u1", "two")
	require.NoError(t, err)

	mine, err := f.svc.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(0), mine[0].UnreadCount)
	require.NotNil(t, mine[0].Recipient)
	assert.Equal(t, "u2", mine[0].Recipient.ID)

	theirs, err := f.svc.ListConversations(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, int64(2), theirs[0].UnreadCount)
	assert.Equal(t, "u1", theirs[0].Recipient.ID)
}

func TestRelayTyping(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	view, err := f.svc.CreateConversation(ctx, "u1", "u2", "", "")
	require.NoError(t, err)

	f.svc.RelayTyping(ctx, view.ID, "u1", true)
	f.svc.RelayTyping(ctx, view.ID, "u1", false)
	events := f.hub.eventsFor("u2")
	assert.True(t, hasEvent(events, models.EventUserTyping))
	assert.True(t, hasEvent(events, models.EventUserStoppedTyping))

	// Outsiders cannot inject typing events.
	before := len(f.hub.eventsFor("u2")) + len(f.hub.eventsFor("u1"))
	f.svc.RelayTyping(ctx, view.ID, "u3", true)
	after := len(f.hub.eventsFor("u2")) + len(f.hub.eventsFor("u1"))
	assert.Equal(t, before, after)
}
