package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
)

// maxAvatarBytes bounds the multipart body of the profile form.
const maxAvatarBytes = 5 << 20

type ProfileHandler struct {
	accounts *services.AccountService
	log      zerolog.Logger
}

func NewProfileHandler(accounts *services.AccountService, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, log: log}
}

func profileInput(u *models.User) services.ProfileInput {
	in := services.ProfileInput{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
	if p := u.Profile; p != nil {
		in.Phone, in.Position, in.AvatarURL = p.Phone, p.Position, p.AvatarURL
	}
	return in
}

func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	u, err := h.accounts.GetUser(r.Context(), actorID(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, u, profileInput(u), nil)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	a := actorOf(r)
	u, err := h.accounts.GetUser(r.Context(), actorID(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderForm(w, r, http.StatusUnprocessableEntity, u, profileInput(u), map[string]string{"avatar": "too_long"})
		return
	}
	in := services.ProfileInput{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Position:  r.FormValue("position"),
		AvatarURL: r.FormValue("avatar"),
	}
	if !a.IsAdmin() {
		// the field is not rendered for these users
		in.Position = profileInput(u).Position
	}

	var upload *services.Upload
	if file, header, err := r.FormFile("avatar_file"); err == nil {
		defer file.Close()
		upload = &services.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	}

	if _, err := h.accounts.UpdateProfile(r.Context(), a, in, upload); err != nil {
		if errs, ok := violations(err); ok {
			h.renderForm(w, r, http.StatusUnprocessableEntity, u, in, errs)
			return
		}
		if errors.Is(err, services.ErrUpstream) {
			h.log.Error().Err(err).Uint("user_id", u.ID).Msg("avatar upload failed")
			flash(w, r, auth.FlashError, "flash.upstream")
			redirect(w, r, "/profile")
			return
		}
		fail(w, r, h.log, err)
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.profile_updated")
	redirect(w, r, "/profile")
}

func (h *ProfileHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, u *models.User, in services.ProfileInput, errs map[string]string) {
	data := map[string]any{
		"User":            u,
		"Form":            in,
		"CanEditPosition": actorOf(r).IsAdmin(),
	}
	if errs != nil {
		data["Errors"] = errs
	}
	render(w, r, h.log, status, "profile.html", data)
}
