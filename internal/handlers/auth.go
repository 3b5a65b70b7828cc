package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/i18n"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	accounts *services.AccountService
	log      zerolog.Logger
}

func NewAuthHandler(accounts *services.AccountService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		render(w, r, h.log, http.StatusOK, "login.html", nil)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	user, err := h.accounts.Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			h.log.Error().Err(err).Msg("login failed")
		}
		render(w, r, h.log, http.StatusUnauthorized, "login.html", map[string]any{
			"Error":    i18n.T(i18n.LangFromContext(r.Context()), "login.invalid"),
			"Username": username,
		})
		return
	}

	auth.CreateSession(w, user.ID)
	h.log.Info().Uint("user_id", user.ID).Msg("user logged in")
	redirect(w, r, "/dashboard")
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		render(w, r, h.log, http.StatusOK, "signup.html", map[string]any{"Form": services.SignupInput{}})
		return
	}

	in := services.SignupInput{
		Username:        r.FormValue("username"),
		FirstName:       r.FormValue("first_name"),
		LastName:        r.FormValue("last_name"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password_confirm"),
	}
	user, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		in.Password, in.PasswordConfirm = "", ""
		if errs, ok := violations(err); ok {
			render(w, r, h.log, http.StatusUnprocessableEntity, "signup.html", map[string]any{"Form": in, "Errors": errs})
			return
		}
		if !errors.Is(err, services.ErrUpstream) {
			fail(w, r, h.log, err)
			return
		}
		// the welcome email could not be sent; the account was rolled back
		h.log.Error().Err(err).Str("username", in.Username).Msg("signup failed")
		render(w, r, h.log, http.StatusBadGateway, "signup.html", map[string]any{
			"Form":  in,
			"Error": i18n.T(i18n.LangFromContext(r.Context()), "flash.upstream"),
		})
		return
	}

	auth.CreateSession(w, user.ID)
	flash(w, r, auth.FlashSuccess, "flash.welcome")
	redirect(w, r, "/dashboard")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	redirect(w, r, "/login")
}
