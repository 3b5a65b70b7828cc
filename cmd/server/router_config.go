package main

import (
	"github.com/diewo77/go-crm/internal/api"
	"github.com/diewo77/go-crm/internal/handlers"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// RouterConfig holds the configured handlers and middleware of the application.
type RouterConfig struct {
	// AuthGate resolves the request actor and guards the admin area.
	AuthGate *policy.AuthGate

	AuthHandler        *handlers.AuthHandler
	DashboardHandler   *handlers.DashboardHandler
	ClientHandler      *handlers.ClientHandler
	LeadHandler        *handlers.LeadHandler
	InteractionHandler *handlers.InteractionHandler
	ProfileHandler     *handlers.ProfileHandler
	AdminUserHandler   *handlers.AdminUserHandler

	// API serves the JSON endpoints mounted under /api.
	API *api.API

	Services *services.Services
}

// NewRouterConfig wires the services into the UI handlers and the API.
func NewRouterConfig(db *gorm.DB, svc *services.Services, log zerolog.Logger) *RouterConfig {
	hlog := log.With().Str("component", "handlers").Logger()
	return &RouterConfig{
		AuthGate: policy.NewAuthGate(db, log.With().Str("component", "policy").Logger()),

		AuthHandler:        handlers.NewAuthHandler(svc.Accounts, hlog),
		DashboardHandler:   handlers.NewDashboardHandler(svc.Dashboard, hlog),
		ClientHandler:      handlers.NewClientHandler(svc.Clients, hlog),
		LeadHandler:        handlers.NewLeadHandler(svc.Leads, svc.Clients, svc.Accounts, hlog),
		InteractionHandler: handlers.NewInteractionHandler(svc.Interactions, svc.Clients, hlog),
		ProfileHandler:     handlers.NewProfileHandler(svc.Accounts, hlog),
		AdminUserHandler:   handlers.NewAdminUserHandler(svc.Accounts, hlog),

		API: api.New(svc, log.With().Str("component", "api").Logger()),

		Services: svc,
	}
}
