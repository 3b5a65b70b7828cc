package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
)

type ClientHandler struct {
	clients *services.ClientService
	log     zerolog.Logger
}

func NewClientHandler(clients *services.ClientService, log zerolog.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, log: log}
}

func clientForm(r *http.Request) services.ClientInput {
	return services.ClientInput{
		Name:     r.FormValue("name"),
		Company:  r.FormValue("company"),
		Email:    r.FormValue("email"),
		Phone:    r.FormValue("phone"),
		Website:  r.FormValue("website"),
		Industry: r.FormValue("industry"),
		Notes:    r.FormValue("notes"),
	}
}

// List shows the visible clients, filtered by the q search parameter.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := h.clients.List(r.Context(), actorOf(r), q, pageParam(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	render(w, r, h.log, http.StatusOK, "clients/index.html", map[string]any{
		"Page":  page,
		"Query": q,
		"Pager": newPager(page, "/clients", url.Values{"q": {q}}),
	})
}

func (h *ClientHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "/clients", false, services.ClientInput{}, nil)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	in := clientForm(r)
	c, err := h.clients.Create(r.Context(), actorOf(r), in)
	if err != nil {
		if errs, ok := violations(err); ok {
			h.renderForm(w, r, http.StatusUnprocessableEntity, "/clients", false, in, errs)
			return
		}
		fail(w, r, h.log, err)
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.client_created")
	redirect(w, r, fmt.Sprintf("/clients/%d", c.ID))
}

// View shows a client with its leads and interaction log.
func (h *ClientHandler) View(w http.ResponseWriter, r *http.Request) {
	d, err := h.clients.Detail(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	render(w, r, h.log, http.StatusOK, "clients/view.html", map[string]any{
		"Detail":  d,
		"ActorID": actorID(r),
		"Title":   d.Client.Name,
	})
}

func (h *ClientHandler) Edit(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.Get(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	in := services.ClientInput{
		Name:     c.Name,
		Company:  c.Company,
		Email:    c.Email,
		Phone:    c.Phone,
		Website:  c.Website,
		Industry: c.Industry,
		Notes:    c.Notes,
	}
	h.renderForm(w, r, http.StatusOK, fmt.Sprintf("/clients/%d", c.ID), true, in, nil)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	in := clientForm(r)
	if _, err := h.clients.Update(r.Context(), actorOf(r), id, in); err != nil {
		if errs, ok := violations(err); ok {
			h.renderForm(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("/clients/%d", id), true, in, errs)
			return
		}
		fail(w, r, h.log, err)
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.client_updated")
	redirect(w, r, fmt.Sprintf("/clients/%d", id))
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.clients.Delete(r.Context(), actorOf(r), idParam(r)); err != nil {
		fail(w, r, h.log, err)
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.client_deleted")
	redirect(w, r, "/clients")
}

func (h *ClientHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, action string, editing bool, in services.ClientInput, errs map[string]string) {
	cancel := "/clients"
	if editing {
		cancel = action
	}
	data := map[string]any{
		"Form":    in,
		"Action":  action,
		"Editing": editing,
		"Cancel":  cancel,
	}
	if errs != nil {
		data["Errors"] = errs
	}
	render(w, r, h.log, status, "clients/form.html", data)
}
