package models

import (
	"fmt"
	"time"
)

// InteractionType categorizes an interaction.
type InteractionType string

const (
	InteractionCall    InteractionType = "call"
	InteractionEmail   InteractionType = "email"
	InteractionMeeting InteractionType = "meeting"
	InteractionNote    InteractionType = "note"
)

// InteractionTypes returns every interaction type in declaration order.
func InteractionTypes() []InteractionType {
	return []InteractionType{InteractionCall, InteractionEmail, InteractionMeeting, InteractionNote}
}

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionCall, InteractionEmail, InteractionMeeting, InteractionNote:
		return true
	}
	return false
}

// Interaction is one entry of a client's chronological activity log.
// Notes is append-only once written.
type Interaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientID uint    `gorm:"not null;index" json:"client_id"`
	Client   *Client `gorm:"constraint:OnDelete:CASCADE" json:"client,omitempty"`

	// AuthorID is nulled when the author is deleted.
	AuthorID *uint `gorm:"index" json:"author_id"`
	Author   *User `gorm:"constraint:OnDelete:SET NULL" json:"author,omitempty"`

	Type         InteractionType `gorm:"column:interaction_type;size:20;not null;default:'note'" json:"interaction_type"`
	Subject      string          `gorm:"size:255" json:"subject,omitempty"`
	Notes        string          `gorm:"type:text;not null" json:"notes"`
	OccurredAt   time.Time       `gorm:"not null;index" json:"occurred_at"`
	FollowUpDate *time.Time      `gorm:"type:date" json:"follow_up_date,omitempty"`
}

// IsAuthoredBy reports whether userID wrote the interaction.
func (i *Interaction) IsAuthoredBy(userID uint) bool {
	return i.AuthorID != nil && *i.AuthorID == userID
}

// CompletionNote is the suffix appended to Notes when a follow-up is completed.
func CompletionNote(at time.Time) string {
	return fmt.Sprintf("\n\nCompleted on %s", at.Format("02/01/2006 15:04"))
}
