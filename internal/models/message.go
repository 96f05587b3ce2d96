package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageStatus is the per-message delivery state. Transitions are
// monotonic: sent -> delivered -> read, never backwards.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// rank orders statuses for monotonicity checks.
func (s MessageStatus) rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

// CanTransition reports whether moving from s to next is a forward
// transition. sent -> read is allowed (delivery ack may never arrive).
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	return next.rank() > s.rank()
}

// Message is one chat message inside a conversation. Only Status and ReadAt
// are ever mutated after insert.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	SenderID       string             `bson:"sender_id" json:"senderId"`
	Sender         *UserProfile       `bson:"-" json:"sender,omitempty"`
	Text           string             `bson:"text" json:"text"`
	Status         MessageStatus      `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	ReadAt         *time.Time         `bson:"read_at,omitempty" json:"readAt,omitempty"`
}
