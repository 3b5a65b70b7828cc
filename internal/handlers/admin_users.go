package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
)

// AdminUserHandler lets admins review accounts, set positions, toggle
// activation and delete users. Routes are mounted behind RequireAdmin;
// the service checks the role gate again.
type AdminUserHandler struct {
	accounts *services.AccountService
	log      zerolog.Logger
}

func NewAdminUserHandler(accounts *services.AccountService, log zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{accounts: accounts, log: log}
}

// List displays every user with their profile.
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context(), actorOf(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	render(w, r, h.log, http.StatusOK, "admin/users.html", map[string]any{
		"Users":   users,
		"ActorID": actorID(r),
	})
}

func (h *AdminUserHandler) SetPosition(w http.ResponseWriter, r *http.Request) {
	err := h.accounts.SetPosition(r.Context(), actorOf(r), idParam(r), r.FormValue("position"))
	h.done(w, r, err, "flash.user_updated")
}

func (h *AdminUserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	err := h.accounts.SetActive(r.Context(), actorOf(r), idParam(r), r.FormValue("active") == "true")
	h.done(w, r, err, "flash.user_updated")
}

func (h *AdminUserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.accounts.DeleteUser(r.Context(), actorOf(r), idParam(r))
	h.done(w, r, err, "flash.user_deleted")
}

// done flashes the outcome of an admin action and returns to the user list.
func (h *AdminUserHandler) done(w http.ResponseWriter, r *http.Request, err error, success string) {
	switch {
	case err == nil:
		flash(w, r, auth.FlashSuccess, success)
	case errors.Is(err, services.ErrForbidden):
		flash(w, r, auth.FlashError, "flash.no_permission")
	case errors.Is(err, services.ErrNotFound):
		flash(w, r, auth.FlashError, "flash.not_found")
	default:
		if errs, ok := violations(err); ok {
			for _, code := range errs {
				flash(w, r, auth.FlashError, code)
				break
			}
		} else {
			h.log.Error().Err(err).Msg("admin action failed")
			flash(w, r, auth.FlashError, "flash.error")
		}
	}
	redirect(w, r, "/admin/users")
}
