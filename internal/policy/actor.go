package policy

import (
	"context"

	"github.com/diewo77/go-crm/internal/models"
)

// Actor is the authenticated user as seen by authorization code.
// It is resolved once per request and carried in the request context.
type Actor struct {
	UserID     uint
	Username   string
	Privileged bool
	Role       models.Role
}

// NewActor builds an actor from a user with its profile loaded.
func NewActor(u *models.User) *Actor {
	return &Actor{
		UserID:     u.ID,
		Username:   u.Username,
		Privileged: u.IsSuperuser,
		Role:       u.Role(),
	}
}

// IsAdmin reports whether the actor passes the role gate:
// privileged, or carrying exactly the Admin role.
func (a *Actor) IsAdmin() bool {
	if a == nil {
		return false
	}
	return a.Privileged || a.Role.IsAdmin()
}

type actorCtxKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, a)
}

// ActorFromContext returns the actor resolved for the current request.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(actorCtxKey{}).(*Actor)
	return a, ok && a != nil
}
