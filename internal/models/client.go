package models

import "time"

// Client represents a customer account tracked by one owner.
// (Name, OwnerID) is unique: two owners may each have a client with the same name.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"size:255;not null;uniqueIndex:idx_client_name_owner" json:"name"`
	Company  string `gorm:"size:255" json:"company,omitempty"`
	Email    string `gorm:"size:254" json:"email,omitempty"`
	Phone    string `gorm:"size:40" json:"phone,omitempty"`
	Website  string `gorm:"size:500" json:"website,omitempty"`
	Industry string `gorm:"size:120" json:"industry,omitempty"`
	Notes    string `gorm:"type:text" json:"notes,omitempty"`

	// OwnerID is the user this client belongs to (multi-tenant isolation).
	// Deleting the owner deletes the client.
	OwnerID uint  `gorm:"not null;index;uniqueIndex:idx_client_name_owner" json:"owner_id"`
	Owner   *User `gorm:"constraint:OnDelete:CASCADE" json:"owner,omitempty"`
}

// GetUserID implements policy.Ownable.
func (c *Client) GetUserID() uint {
	return c.OwnerID
}
