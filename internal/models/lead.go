package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeadStatus is a pipeline stage.
type LeadStatus string

const (
	LeadStatusNew      LeadStatus = "new"
	LeadStatusContact  LeadStatus = "contact"
	LeadStatusProposal LeadStatus = "proposal"
	LeadStatusWon      LeadStatus = "won"
	LeadStatusLost     LeadStatus = "lost"
)

var leadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContact,
	LeadStatusProposal,
	LeadStatusWon,
	LeadStatusLost,
}

// LeadStatuses returns every pipeline stage in declaration order.
func LeadStatuses() []LeadStatus {
	out := make([]LeadStatus, len(leadStatuses))
	copy(out, leadStatuses)
	return out
}

// Valid reports whether s is a member of the closed status set.
func (s LeadStatus) Valid() bool {
	for _, st := range leadStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether s closes the lead (won or lost).
func (s LeadStatus) Terminal() bool {
	return s == LeadStatusWon || s == LeadStatusLost
}

// Lead is a sales opportunity attached to a client.
type Lead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	// Deleting the client deletes its leads.
	ClientID uint    `gorm:"not null;index" json:"client_id"`
	Client   *Client `gorm:"constraint:OnDelete:CASCADE" json:"client,omitempty"`

	Status LeadStatus `gorm:"size:20;not null;default:'new';index;index:idx_lead_assignee_status,priority:2" json:"status"`
	Source string     `gorm:"size:120" json:"source,omitempty"`

	// AssignedToID is nulled when the assignee is deleted.
	AssignedToID *uint `gorm:"index:idx_lead_assignee_status,priority:1" json:"assigned_to_id"`
	AssignedTo   *User `gorm:"constraint:OnDelete:SET NULL" json:"assigned_to,omitempty"`

	Value             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"value"`
	ExpectedCloseDate *time.Time      `gorm:"type:date" json:"expected_close_date,omitempty"`

	// InteractionCount is filled by list queries; it is the number of
	// interactions recorded on the lead's client.
	InteractionCount int64 `gorm:"->;-:migration" json:"interaction_count"`
}

// GetUserID implements policy.Ownable through the client owner.
// It returns zero when the client is not loaded.
func (l *Lead) GetUserID() uint {
	if l.Client == nil {
		return 0
	}
	return l.Client.OwnerID
}

// IsAssignedTo reports whether userID is the lead's assignee.
func (l *Lead) IsAssignedTo(userID uint) bool {
	return l.AssignedToID != nil && *l.AssignedToID == userID
}

// IsOverdue reports whether the expected close date is strictly before today,
// regardless of status.
func (l *Lead) IsOverdue(today time.Time) bool {
	if l.ExpectedCloseDate == nil {
		return false
	}
	return dateOnly(*l.ExpectedCloseDate).Before(dateOnly(today))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
