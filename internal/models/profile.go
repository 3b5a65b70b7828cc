package models

import "time"

// Role is the authorization label derived from Profile.Position.
type Role string

// RoleAdmin grants access to the user administration area.
// The comparison is exact and case-sensitive.
const RoleAdmin Role = "Admin"

// Profile holds the per-user contact details and position.
// Exactly one profile exists per user.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Phone     string    `gorm:"size:20" json:"phone,omitempty"`
	Position  string    `gorm:"size:100" json:"position,omitempty"`
	AvatarURL string    `gorm:"size:500" json:"avatar,omitempty"`
}

// Role returns the profile position as a typed role. A nil profile has no role.
func (p *Profile) Role() Role {
	if p == nil {
		return ""
	}
	return Role(p.Position)
}

// IsAdmin reports whether the role is exactly RoleAdmin.
func (r Role) IsAdmin() bool { return r == RoleAdmin }
