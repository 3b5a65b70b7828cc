// Package services holds the CRM business rules. Every query on clients,
// leads and interactions runs through the visibility scopes of the policy
// package, so handlers never filter rows themselves.
package services

import (
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/storage"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Services bundles every service the HTTP layers depend on.
type Services struct {
	Accounts     *AccountService
	Clients      *ClientService
	Leads        *LeadService
	Interactions *InteractionService
	Dashboard    *DashboardService
}

func New(db *gorm.DB, sender mail.Sender, store storage.Store, log zerolog.Logger) *Services {
	return &Services{
		Accounts:     NewAccountService(db, sender, store, log.With().Str("service", "accounts").Logger()),
		Clients:      NewClientService(db, log.With().Str("service", "clients").Logger()),
		Leads:        NewLeadService(db, log.With().Str("service", "leads").Logger()),
		Interactions: NewInteractionService(db, log.With().Str("service", "interactions").Logger()),
		Dashboard:    NewDashboardService(db, log.With().Str("service", "dashboard").Logger()),
	}
}
