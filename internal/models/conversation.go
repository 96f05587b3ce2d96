package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is a two-party thread, optionally scoped to a listing.
// Participants never change after creation.
type Conversation struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Participants []string           `bson:"participants" json:"participants"`
	// PairKey is the normalized participants pair (+ optional listing) used
	// by the unique index that enforces one conversation per pair.
	PairKey       string             `bson:"pair_key" json:"-"`
	ListingID     string             `bson:"listing_id,omitempty" json:"listingId,omitempty"`
	LastMessageID primitive.ObjectID `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	UnreadCount   map[string]int64   `bson:"unread_count" json:"unreadCount"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// PairKey normalizes an unordered participant pair plus an optional listing
// scope into the deduplication key. The same two users always map to the same
// key regardless of who initiated.
func PairKey(a, b, listingID string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	if listingID != "" {
		return strings.Join(ids, "|") + "|" + listingID
	}
	return strings.Join(ids, "|")
}

// OtherParticipant returns the participant that is not userID, or "" if
// userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// UnreadFor returns userID's own unread counter.
func (c *Conversation) UnreadFor(userID string) int64 {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[userID]
}

// ConversationView is the list-entry representation returned to a caller:
// the other participant's public profile, the listing summary, the last
// message preview and the caller's own unread counter only.
type ConversationView struct {
	ID          string          `json:"id"`
	Recipient   *UserProfile    `json:"recipient,omitempty"`
	Listing     *ListingSummary `json:"listing,omitempty"`
	LastMessage *Message        `json:"lastMessage,omitempty"`
	UnreadCount int64           `json:"unreadCount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
