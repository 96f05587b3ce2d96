package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/charukaonline/uninest-sub000/internal/config"
	"github.com/charukaonline/uninest-sub000/internal/metrics"
	"github.com/charukaonline/uninest-sub000/internal/models"
)

// ChatCache fronts the conversation-list and message-history reads. It is
// advisory only: every error degrades to a miss or a no-op and the durable
// store remains correct with the cache gone entirely.
type ChatCache interface {
	GetConversations(ctx context.Context, userID string) ([]*models.ConversationView, bool)
	SetConversations(ctx context.Context, userID string, views []*models.ConversationView)
	GetMessages(ctx context.Context, conversationID string) ([]*models.Message, bool)
	SetMessages(ctx context.Context, conversationID string, msgs []*models.Message)
	InvalidateMessages(ctx context.Context, conversationID string)
	InvalidateConversations(ctx context.Context, userIDs ...string)
}

const (
	conversationsPrefix = "chat:conversations:"
	messagesPrefix      = "chat:messages:"
)

type redisChatCache struct {
	cli              *redis.Client
	log              *zap.SugaredLogger
	conversationsTTL time.Duration
	messagesTTL      time.Duration
	opTimeout        time.Duration
}

// NewChatCache builds the Redis-backed cache with the configured TTLs.
func NewChatCache(cli *redis.Client, cfg *config.Config, log *zap.SugaredLogger) ChatCache {
	return &redisChatCache{
		cli:              cli,
		log:              log,
		conversationsTTL: cfg.Cache.ConversationsTTL,
		messagesTTL:      cfg.Cache.MessagesTTL,
		opTimeout:        cfg.Cache.OpTimeout,
	}
}

func (c *redisChatCache) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

func (c *redisChatCache) GetConversations(ctx context.Context, userID string) ([]*models.ConversationView, bool) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	raw, err := c.cli.Get(ctx, conversationsPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debugw("conversations cache read failed", "user", userID, "err", err)
		}
		metrics.CacheMisses.WithLabelValues("conversations").Inc()
		return nil, false
	}
	var views []*models.ConversationView
	if err := json.Unmarshal(raw, &views); err != nil {
		metrics.CacheMisses.WithLabelValues("conversations").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("conversations").Inc()
	return views, true
}

func (c *redisChatCache) SetConversations(ctx context.Context, userID string, views []*models.ConversationView) {
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.cli.Set(ctx, conversationsPrefix+userID, raw, c.conversationsTTL).Err(); err != nil {
		c.log.Debugw("conversations cache write failed", "user", userID, "err", err)
	}
}

func (c *redisChatCache) GetMessages(ctx context.Context, conversationID string) ([]*models.Message, bool) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	raw, err := c.cli.Get(ctx, messagesPrefix+conversationID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debugw("messages cache read failed", "conversation", conversationID, "err", err)
		}
		metrics.CacheMisses.WithLabelValues("messages").Inc()
		return nil, false
	}
	var msgs []*models.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		metrics.CacheMisses.WithLabelValues("messages").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("messages").Inc()
	return msgs, true
}

func (c *redisChatCache) SetMessages(ctx context.Context, conversationID string, msgs []*models.Message) {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.cli.Set(ctx, messagesPrefix+conversationID, raw, c.messagesTTL).Err(); err != nil {
		c.log.Debugw("messages cache write failed", "conversation", conversationID, "err", err)
	}
}

func (c *redisChatCache) InvalidateMessages(ctx context.Context, conversationID string) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	if err := c.cli.Del(ctx, messagesPrefix+conversationID).Err(); err != nil {
		c.log.Debugw("messages cache invalidation failed", "conversation", conversationID, "err", err)
	}
}

func (c *redisChatCache) InvalidateConversations(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	pipe := c.cli.Pipeline()
	for _, id := range userIDs {
		pipe.Del(ctx, conversationsPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Debugw("conversations cache invalidation failed", "users", userIDs, "err", err)
	}
}

// Disabled is a no-op cache: every read misses, every write is dropped.
// Used when the cache is turned off or Redis is unreachable at startup.
type Disabled struct{}

func (Disabled) GetConversations(context.Context, string) ([]*models.ConversationView, bool) {
	return nil, false
}
func (Disabled) SetConversations(context.Context, string, []*models.ConversationView) {}
func (Disabled) GetMessages(context.Context, string) ([]*models.Message, bool)        { return nil, false }
func (Disabled) SetMessages(context.Context, string, []*models.Message)               {}
func (Disabled) InvalidateMessages(context.Context, string)                           {}
func (Disabled) InvalidateConversations(context.Context, ...string)                   {}
