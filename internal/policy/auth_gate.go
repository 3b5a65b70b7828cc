package policy

import (
	"context"
	"net/http"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/gate"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AuthGate ties the policy gate to request identity.
type AuthGate struct {
	Gate     *gate.Gate[*Actor]
	Resolver *DBActorResolver
	log      zerolog.Logger
}

// NewAuthGate creates a gate with every CRM policy registered.
func NewAuthGate(db *gorm.DB, log zerolog.Logger) *AuthGate {
	return &AuthGate{
		Gate:     NewGate(),
		Resolver: NewDBActorResolver(db),
		log:      log,
	}
}

// Authorize checks the current request's actor against the gate.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	a, ok := ActorFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, a, action, resourceType, resource)
}

// Can is Authorize as a bool.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// ResolveActor loads the actor for an authenticated request, once.
// Missing or inactive users leave the request without an actor, which
// RequireAuth then treats as unauthenticated.
func (ag *AuthGate) ResolveActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if ok {
			a, err := ag.Resolver.Resolve(r.Context(), uid)
			if err != nil {
				ag.log.Debug().Err(err).Uint("user_id", uid).Msg("actor not resolved")
			} else {
				r = r.WithContext(WithActor(r.Context(), a))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// VerifyUser is an auth.UserVerifier accepting requests that carry a resolved actor.
func VerifyUser(ctx context.Context, uid uint) bool {
	a, ok := ActorFromContext(ctx)
	return ok && a.UserID == uid
}

// RequireAdmin returns middleware enforcing the role gate.
// deny is called for actors that fail it.
func (ag *AuthGate) RequireAdmin(deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ag.Authorize(r.Context(), gate.ActionManage, ResourceUsers, nil); err != nil {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
