// Package api exposes the CRM services as a JSON API mounted under /api.
// Callers authenticate with a bearer token from POST /auth/token.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type API struct {
	svc *services.Services
	log zerolog.Logger
}

func New(svc *services.Services, log zerolog.Logger) *API {
	return &API{svc: svc, log: log}
}

// Routes returns the API router. Everything but token issuance requires an
// authenticated caller.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/token", a.issueToken)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/dashboard", a.dashboard)
		r.Get("/users", a.listUsers)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", a.listClients)
			r.Post("/", a.createClient)
			r.Get("/{id}", a.getClient)
			r.Put("/{id}", a.updateClient)
			r.Delete("/{id}", a.deleteClient)
		})
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", a.listLeads)
			r.Post("/", a.createLead)
			r.Get("/{id}", a.getLead)
			r.Put("/{id}", a.updateLead)
			r.Delete("/{id}", a.deleteLead)
			r.Post("/{id}/stage", a.stageLead)
		})
		r.Route("/interactions", func(r chi.Router) {
			r.Get("/", a.listInteractions)
			r.Post("/", a.createInteraction)
			r.Get("/{id}", a.getInteraction)
			r.Put("/{id}", a.updateInteraction)
			r.Delete("/{id}", a.deleteInteraction)
			r.Post("/{id}/complete", a.completeInteraction)
		})
	})
	return r
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (a *API) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_argument", map[string]string{"reason": "malformed body"})
		return
	}
	u, err := a.svc.Accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	token, exp, err := auth.IssueToken(u.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: exp.UTC().Format(timeLayout)})
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Dashboard.Build(r.Context(), actorOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newDashboardView(d))
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.svc.Accounts.ListUsers(r.Context(), actorOf(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]adminUserView, 0, len(users))
	for i := range users {
		out = append(out, newAdminUserView(&users[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// writeError maps a service error onto a status code and the error envelope.
// Unexpected errors are logged and answered without detail.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *services.ValidationError
	var ae *services.ArgumentError
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_error", ve.Fields)
	case errors.As(err, &ae):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_argument", map[string]string{"reason": ae.Reason})
	case errors.Is(err, services.ErrInvalidArgument):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_argument", nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, services.ErrUpstream):
		a.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("upstream failure")
		httpx.JSONError(w, http.StatusBadGateway, "upstream_failure", nil)
	default:
		a.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("unexpected error")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func badRequest(w http.ResponseWriter, reason string) {
	httpx.JSONError(w, http.StatusBadRequest, "invalid_argument", map[string]string{"reason": reason})
}

func actorOf(r *http.Request) *policy.Actor {
	a, _ := policy.ActorFromContext(r.Context())
	return a
}

// idParam reads the {id} route parameter; ok is false when it is not a
// positive integer.
func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func toPage[T, V any](p services.Page[T], view func(*T) V) httpx.Page[V] {
	items := make([]V, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, view(&p.Items[i]))
	}
	return httpx.Page[V]{Items: items, Total: p.Total, Page: p.Number, PageSize: p.PageSize}
}
