// Package gate is a small Gate/Policy authorization registry.
// The Gate maps resource type names to policies; each Policy decides whether
// a subject may perform an action on a resource. The package knows nothing
// about the CRM models and is parameterized on the subject type:
//   - Gate[uint] for user ID based checks
//   - Gate[*policy.Actor] for request-scoped actors carrying their role
package gate

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned for a zero subject or a denied action.
	ErrUnauthorized    = errors.New("gate: unauthorized")
	ErrNoPolicyDefined = errors.New("gate: no policy defined for resource")
)

// DeniedError is the error of a check a policy refused. It matches ErrUnauthorized.
type DeniedError struct {
	Action       Action
	ResourceType string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("gate: %s on %s denied", e.Action, e.ResourceType)
}

func (e *DeniedError) Is(target error) bool { return target == ErrUnauthorized }

// Gate is the central authorization checkpoint.
// U is the subject type; its zero value means "no subject" and is always denied.
type Gate[U comparable] struct {
	policies map[string]Policy[U]
}

// NewGate creates an empty Gate ready to register policies.
func NewGate[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register adds a policy for a resource type (e.g. "lead").
// Overwrites any existing policy for that type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns nil when user may perform action on resource.
// A zero subject yields ErrUnauthorized, a refusal a *DeniedError and an
// unknown resourceType an error wrapping ErrNoPolicyDefined.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPolicyDefined, resourceType)
	}
	if !p.Can(ctx, user, action, resource) {
		return &DeniedError{Action: action, ResourceType: resourceType}
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}
