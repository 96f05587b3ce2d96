package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charukaonline/uninest-sub000/internal/apperr"
	"github.com/charukaonline/uninest-sub000/internal/models"
)

// ChatRepository is the durable store behind the chat core. The Mongo
// implementation is authoritative; the cache in front of it is not.
type ChatRepository interface {
	// FindOrCreateConversation resolves the single conversation for an
	// unordered pair (optionally scoped to a listing), creating it when
	// absent. Safe under concurrent calls for the same pair. The returned
	// bool is true when this call created the conversation.
	FindOrCreateConversation(ctx context.Context, userA, userB, listingID string) (*models.Conversation, bool, error)
	GetConversation(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error)

	// InsertMessage commits the message plus the conversation's
	// last-message/updated-at/unread-counter update as one transaction.
	InsertMessage(ctx context.Context, msg *models.Message, recipientID string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID primitive.ObjectID) ([]*models.Message, error)
	GetMessage(ctx context.Context, id primitive.ObjectID) (*models.Message, error)

	// MarkConversationRead flips all unread messages addressed to userID to
	// read and zeroes that user's unread counter.
	MarkConversationRead(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error)
	// MarkMessageDelivered advances sent -> delivered; it is a no-op for
	// messages already delivered or read. Returns the message either way.
	MarkMessageDelivered(ctx context.Context, messageID primitive.ObjectID) (*models.Message, error)
	UnreadTotal(ctx context.Context, userID string) (int64, error)
}

type mongoChatRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
	client        *mongo.Client
}

// NewChatRepository wires the two collections and ensures the indexes the
// dedup and list queries rely on.
func NewChatRepository(client *mongo.Client, db string, conversationsColl, messagesColl string) (ChatRepository, error) {
	r := &mongoChatRepository{
		conversations: client.Database(db).Collection(conversationsColl),
		messages:      client.Database(db).Collection(messagesColl),
		client:        client,
	}
	if err := r.ensureIndexes(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mongoChatRepository) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// pair_key uniqueness is what makes find-or-create race-free.
	_, err := r.conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("pair_key_unique"),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("participants_updated"),
		},
	})
	if err != nil {
		return err
	}
	_, err = r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("conversation_created"),
	})
	return err
}

func (r *mongoChatRepository) FindOrCreateConversation(ctx context.Context, userA, userB, listingID string) (*models.Conversation, bool, error) {
	now := time.Now().UTC()
	key := models.PairKey(userA, userB, listingID)

	set := bson.M{
		"participants": []string{userA, userB},
		"unread_count": bson.M{userA: int64(0), userB: int64(0)},
		"created_at":   now,
		"updated_at":   now,
	}
	if listingID != "" {
		set["listing_id"] = listingID
	}

	// Upsert on the unique pair key: the first writer inserts, everyone
	// else matches the same document. No read-then-write window.
	res, err := r.conversations.UpdateOne(ctx,
		bson.M{"pair_key": key},
		bson.M{"$setOnInsert": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, false, storeErr(err)
	}

	var conv models.Conversation
	if err := r.conversations.FindOne(ctx, bson.M{"pair_key": key}).Decode(&conv); err != nil {
		return nil, false, storeErr(err)
	}
	return &conv, res.UpsertedCount > 0, nil
}

func (r *mongoChatRepository) GetConversation(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return &conv, nil
}

func (r *mongoChatRepository) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	cur, err := r.conversations.Find(ctx,
		bson.M{"participants": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, storeErr(err)
	}
	defer cur.Close(ctx)

	var out []*models.Conversation
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, storeErr(err)
		}
		out = append(out, &c)
	}
	return out, storeErr(cur.Err())
}

func (r *mongoChatRepository) InsertMessage(ctx context.Context, msg *models.Message, recipientID string) (*models.Message, error) {
	msg.ID = primitive.NewObjectID()
	msg.Status = models.StatusSent
	msg.CreatedAt = time.Now().UTC()

	session, err := r.client.StartSession()
	if err != nil {
		return nil, storeErr(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		if _, err := r.messages.InsertOne(sc, msg); err != nil {
			return nil, err
		}
		res, err := r.conversations.UpdateOne(sc,
			bson.M{"_id": msg.ConversationID},
			bson.M{
				"$set": bson.M{
					"last_message_id": msg.ID,
					"updated_at":      msg.CreatedAt,
				},
				// Store-level increment: two concurrent senders must not
				// lose an unread update to read-modify-write.
				"$inc": bson.M{"unread_count." + recipientID: int64(1)},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, apperr.ErrNotFound
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, storeErr(err)
	}
	return msg, nil
}

func (r *mongoChatRepository) ListMessages(ctx context.Context, conversationID primitive.ObjectID) ([]*models.Message, error) {
	cur, err := r.messages.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, storeErr(err)
	}
	defer cur.Close(ctx)

	var out []*models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, storeErr(err)
		}
		out = append(out, &m)
	}
	return out, storeErr(cur.Err())
}

func (r *mongoChatRepository) GetMessage(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var m models.Message
	err := r.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return &m, nil
}

func (r *mongoChatRepository) MarkConversationRead(ctx context.Context, conversationID primitive.ObjectID, userID string) (int64, error) {
	now := time.Now().UTC()
	res, err := r.messages.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": userID},
			"status":          bson.M{"$ne": models.StatusRead},
		},
		bson.M{"$set": bson.M{"status": models.StatusRead, "read_at": now}},
	)
	if err != nil {
		return 0, storeErr(err)
	}
	_, err = r.conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"unread_count." + userID: int64(0)}},
	)
	if err != nil {
		return 0, storeErr(err)
	}
	return res.ModifiedCount, nil
}

func (r *mongoChatRepository) MarkMessageDelivered(ctx context.Context, messageID primitive.ObjectID) (*models.Message, error) {
	// Guarded update keeps the state machine monotonic: only sent moves.
	res := r.messages.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID, "status": models.StatusSent},
		bson.M{"$set": bson.M{"status": models.StatusDelivered}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var m models.Message
	if err := res.Decode(&m); err == nil {
		return &m, nil
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storeErr(err)
	}
	// Already delivered/read, or genuinely missing.
	return r.GetMessage(ctx, messageID)
}

func (r *mongoChatRepository) UnreadTotal(ctx context.Context, userID string) (int64, error) {
	cur, err := r.conversations.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"participants": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$unread_count." + userID},
		}}},
	})
	if err != nil {
		return 0, storeErr(err)
	}
	defer cur.Close(ctx)

	var row struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, storeErr(err)
		}
	}
	return row.Total, storeErr(cur.Err())
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
}
