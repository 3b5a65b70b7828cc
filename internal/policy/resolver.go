package policy

import (
	"context"
	"errors"

	"github.com/diewo77/go-crm/internal/models"
	"gorm.io/gorm"
)

// ErrInactiveUser is returned when the user exists but may not sign in.
var ErrInactiveUser = errors.New("inactive user")

// DBActorResolver loads actors from the database.
type DBActorResolver struct {
	DB *gorm.DB
}

// NewDBActorResolver creates a database-backed actor resolver.
func NewDBActorResolver(db *gorm.DB) *DBActorResolver {
	return &DBActorResolver{DB: db}
}

// Resolve loads the user with its profile and derives the actor.
// Inactive users resolve to ErrInactiveUser.
func (r *DBActorResolver) Resolve(ctx context.Context, userID uint) (*Actor, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Profile").First(&user, userID).Error; err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return NewActor(&user), nil
}
