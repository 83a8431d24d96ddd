package models

import (
	"time"

	"github.com/google/uuid"
)

// Party identifies one side of a notification exchange
type Party struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	PhotoURL string    `json:"photoURL,omitempty"`
}

// Notification is a push payload dispatched to a user or a whole business
type Notification struct {
	ID         uuid.UUID `json:"id" db:"id"`
	BusinessID uuid.UUID `json:"businessId" db:"business_id"`

	Sender    Party  `json:"sender"`
	Recipient *Party `json:"recipient,omitempty"`

	Title string      `json:"title" db:"title"`
	Body  string      `json:"body" db:"body"`
	Badge int         `json:"badge,omitempty" db:"badge"`
	Data  Variables   `json:"data,omitempty" db:"data"`
	Kind  string      `json:"kind" db:"kind"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
