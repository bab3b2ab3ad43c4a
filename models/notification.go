package models

import (
	"time"

	"github.com/google/uuid"
)

// Reference types a notification may point back to
const (
	ReferencePetition = "petition"
	ReferenceChange   = "change_proposal"
)

// Notification represents a message written for a recipient when a
// transition they care about happens. Read is the only mutable field.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	RecipientID   uuid.UUID  `json:"recipient_id"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Read          bool       `json:"read"`
	ReferenceType *string    `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
