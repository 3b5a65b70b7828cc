package policy

import (
	"context"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/models"
)

// Resource type names registered on the gate.
const (
	ResourceClient      = "client"
	ResourceLead        = "lead"
	ResourceInteraction = "interaction"
	ResourceUsers       = "users"
)

// Ownable is implemented by models that have an owning user.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows an actor to act on resources they own.
// Privileged actors bypass the check.
type OwnershipPolicy struct{}

// NewOwnershipPolicy creates a new ownership policy.
func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can checks ownership. For list/create there is no resource and any actor passes.
func (p *OwnershipPolicy) Can(_ context.Context, a *Actor, _ gate.Action, resource any) bool {
	if a.Privileged || resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		// Resources without an owner are denied by default.
		return false
	}
	return ownable.GetUserID() == a.UserID
}

// LeadPolicy allows the client owner and the assignee to act on a lead.
// The lead must be loaded with its client.
type LeadPolicy struct {
	owner *OwnershipPolicy
}

// NewLeadPolicy creates a lead policy.
func NewLeadPolicy() *LeadPolicy {
	return &LeadPolicy{owner: NewOwnershipPolicy()}
}

func (p *LeadPolicy) Can(ctx context.Context, a *Actor, action gate.Action, resource any) bool {
	lead, ok := resource.(*models.Lead)
	if !ok || lead == nil {
		return p.owner.Can(ctx, a, action, resource)
	}
	if lead.IsAssignedTo(a.UserID) {
		return true
	}
	return p.owner.Can(ctx, a, action, lead)
}

// InteractionPolicy governs interactions.
// Completing a follow-up is reserved to the author, privileged actors included.
// Other actions follow visibility: author, client owner or privileged.
type InteractionPolicy struct{}

// NewInteractionPolicy creates an interaction policy.
func NewInteractionPolicy() *InteractionPolicy {
	return &InteractionPolicy{}
}

func (p *InteractionPolicy) Can(_ context.Context, a *Actor, action gate.Action, resource any) bool {
	it, ok := resource.(*models.Interaction)
	if !ok || it == nil {
		return resource == nil && action != gate.ActionComplete
	}
	if action == gate.ActionComplete {
		return it.IsAuthoredBy(a.UserID)
	}
	if a.Privileged || it.IsAuthoredBy(a.UserID) {
		return true
	}
	return it.Client != nil && it.Client.OwnerID == a.UserID
}

// rolePolicy is the role gate: privileged actors and actors with the Admin
// role pass. Action and resource are ignored.
var rolePolicy = gate.PolicyFunc[*Actor](func(_ context.Context, a *Actor, _ gate.Action, _ any) bool {
	return a.IsAdmin()
})

// NewGate returns a gate with every CRM policy registered.
func NewGate() *gate.Gate[*Actor] {
	g := gate.NewGate[*Actor]()
	g.Register(ResourceClient, NewOwnershipPolicy())
	g.Register(ResourceLead, NewLeadPolicy())
	g.Register(ResourceInteraction, NewInteractionPolicy())
	g.Register(ResourceUsers, rolePolicy)
	return g
}
