package models

import (
	"strings"
	"time"
)

// User represents an account able to sign in.
// IsSuperuser marks a privileged user: no visibility restriction applies to them.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email     string    `gorm:"size:254" json:"email,omitempty"`
	FirstName string    `gorm:"size:150" json:"first_name,omitempty"`
	LastName  string    `gorm:"size:150" json:"last_name,omitempty"`
	Password  string    `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON

	IsSuperuser bool `gorm:"not null;default:false" json:"is_superuser"`
	IsActive    bool `gorm:"not null;default:true" json:"is_active"`

	// Profile is created together with the user and removed with it.
	Profile *Profile `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName returns the full name, or the username when no name is set.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if n := u.FullName(); n != "" {
		return n
	}
	return u.Username
}

// Role returns the role carried by the user's profile.
func (u *User) Role() Role {
	if u == nil {
		return ""
	}
	return u.Profile.Role()
}
