package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus is the delivery state of a chat message
type MessageStatus string

const (
	MessageSent MessageStatus = "sent"
	MessageRead MessageStatus = "read"
)

// Conversation is a direct channel between exactly two users of a business
type Conversation struct {
	BaseModel

	BusinessID uuid.UUID   `json:"businessId" db:"business_id"`
	MemberIDs  []uuid.UUID `json:"memberIds" db:"member_ids"`

	LastMessage   string     `json:"lastMessage" db:"last_message"`
	LastSenderID  uuid.UUID  `json:"lastSenderId" db:"last_sender_id"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty" db:"last_message_at"`
}

// HasMember reports whether id participates in the conversation.
func (c *Conversation) HasMember(id uuid.UUID) bool {
	for _, m := range c.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Counterpart returns the other member relative to id. The second
// return value is false when id is not a member.
func (c *Conversation) Counterpart(id uuid.UUID) (uuid.UUID, bool) {
	if len(c.MemberIDs) != 2 || !c.HasMember(id) {
		return uuid.Nil, false
	}
	if c.MemberIDs[0] == id {
		return c.MemberIDs[1], true
	}
	return c.MemberIDs[0], true
}

// ConversationEntry is one user's index record for a conversation,
// keyed by the counterpart. It carries the per-user unseen counter.
type ConversationEntry struct {
	UserID         uuid.UUID  `json:"userId" db:"user_id"`
	CounterpartID  uuid.UUID  `json:"counterpartId" db:"counterpart_id"`
	ConversationID uuid.UUID  `json:"conversationId" db:"conversation_id"`
	DisplayName    string     `json:"displayName" db:"display_name"`
	PhotoURL       string     `json:"photoURL" db:"photo_url"`
	UnseenCount    int        `json:"unseenCount" db:"unseen_count"`
	LastMessage    string     `json:"lastMessage" db:"last_message"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty" db:"last_message_at"`
}

// Message is a single chat message inside a conversation
type Message struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	ConversationID uuid.UUID     `json:"conversationId" db:"conversation_id"`
	SenderID       uuid.UUID     `json:"senderId" db:"sender_id"`
	SenderName     string        `json:"senderName" db:"sender_name"`
	Body           string        `json:"body" db:"body"`
	URL            string        `json:"url,omitempty" db:"url"`
	Status         MessageStatus `json:"status" db:"status"`
	ReadDate       *time.Time    `json:"readDate,omitempty" db:"read_date"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
}
