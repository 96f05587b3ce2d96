package models

// Event types pushed to websocket groups.
const (
	EventNewMessage          = "new_message"
	EventNewConversation     = "new_conversation"
	EventMessagesRead        = "messages_read"
	EventMessageStatusUpdate = "message_status_update"
	EventUserTyping          = "user_typing"
	EventUserStoppedTyping   = "user_stopped_typing"
)

// WSEvent is the envelope for every server-to-client push.
type WSEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// NewMessageEvent notifies a recipient of a freshly committed message.
type NewMessageEvent struct {
	ConversationID string   `json:"conversationId"`
	Message        *Message `json:"message"`
}

// NewConversationEvent notifies a recipient that a first message opened a
// new thread with them.
type NewConversationEvent struct {
	ConversationID string       `json:"conversationId"`
	Sender         *UserProfile `json:"sender"`
}

// MessagesReadEvent notifies the other participant that the reader caught up.
type MessagesReadEvent struct {
	ConversationID string `json:"conversationId"`
	ReadBy         string `json:"readBy"`
}

// MessageStatusEvent reports a single message's status change to its sender.
type MessageStatusEvent struct {
	MessageID string        `json:"messageId"`
	Status    MessageStatus `json:"status"`
}

// TypingEvent relays a typing indicator to the other participant.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Username       string `json:"username,omitempty"`
}

// Notification is the payload handed to the notification sink when a user
// should be told about a new message out-of-band.
type Notification struct {
	UserID    string `json:"userId"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	RelatedID string `json:"relatedId"`
	RefModel  string `json:"refModel"`
}
