package handlers

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
)

type InteractionHandler struct {
	interactions *services.InteractionService
	clients      *services.ClientService
	log          zerolog.Logger
	now          func() time.Time
}

func NewInteractionHandler(interactions *services.InteractionService, clients *services.ClientService, log zerolog.Logger) *InteractionHandler {
	return &InteractionHandler{interactions: interactions, clients: clients, log: log, now: time.Now}
}

type interactionForm struct {
	ClientID     uint
	Type         models.InteractionType
	Subject      string
	Notes        string
	OccurredAt   string
	FollowUpDate string
}

func readInteractionForm(r *http.Request) interactionForm {
	return interactionForm{
		ClientID:     uintValue(r.FormValue("client_id")),
		Type:         models.InteractionType(r.FormValue("interaction_type")),
		Subject:      r.FormValue("subject"),
		Notes:        r.FormValue("notes"),
		OccurredAt:   strings.TrimSpace(r.FormValue("occurred_at")),
		FollowUpDate: r.FormValue("follow_up_date"),
	}
}

func (f interactionForm) input() (services.InteractionInput, map[string]string) {
	errs := map[string]string{}
	in := services.InteractionInput{ClientID: f.ClientID, Type: f.Type, Subject: f.Subject, Notes: f.Notes}
	if f.OccurredAt != "" {
		t, err := time.Parse(datetimeLocalLayout, f.OccurredAt)
		if err != nil {
			errs["occurred_at"] = "invalid_date"
		}
		in.OccurredAt = t
	}
	d, ok := parseDate(f.FollowUpDate)
	if !ok {
		errs["follow_up_date"] = "invalid_date"
	}
	in.FollowUpDate = d
	return in, errs
}

// New shows the form for logging an interaction on the client in the route.
func (h *InteractionHandler) New(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.Get(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	f := interactionForm{
		ClientID:   c.ID,
		Type:       models.InteractionNote,
		OccurredAt: h.now().Format(datetimeLocalLayout),
	}
	h.renderForm(w, r, http.StatusOK, 0, c, f, nil)
}

func (h *InteractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	f := readInteractionForm(r)
	in, errs := f.input()
	if len(errs) == 0 {
		it, err := h.interactions.Create(r.Context(), actorOf(r), in)
		if err == nil {
			flash(w, r, auth.FlashSuccess, "flash.interaction_created")
			redirect(w, r, fmt.Sprintf("/clients/%d", it.ClientID))
			return
		}
		var ok bool
		if errs, ok = violations(err); !ok {
			fail(w, r, h.log, err)
			return
		}
	}
	h.renderForm(w, r, http.StatusUnprocessableEntity, 0, nil, f, errs)
}

func (h *InteractionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	it, err := h.interactions.Get(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	f := interactionForm{
		ClientID:     it.ClientID,
		Type:         it.Type,
		Subject:      it.Subject,
		Notes:        it.Notes,
		OccurredAt:   it.OccurredAt.Format(datetimeLocalLayout),
		FollowUpDate: formatDate(it.FollowUpDate),
	}
	h.renderForm(w, r, http.StatusOK, it.ID, it.Client, f, nil)
}

func (h *InteractionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	f := readInteractionForm(r)
	in, errs := f.input()
	if len(errs) == 0 {
		it, err := h.interactions.Update(r.Context(), actorOf(r), id, in)
		if err == nil {
			flash(w, r, auth.FlashSuccess, "flash.interaction_updated")
			redirect(w, r, fmt.Sprintf("/clients/%d", it.ClientID))
			return
		}
		var ok bool
		if errs, ok = violations(err); !ok {
			fail(w, r, h.log, err)
			return
		}
	}
	h.renderForm(w, r, http.StatusUnprocessableEntity, id, nil, f, errs)
}

func (h *InteractionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a := actorOf(r)
	it, err := h.interactions.Get(r.Context(), a, idParam(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.interactions.Delete(r.Context(), a, it.ID); err != nil {
		fail(w, r, h.log, err)
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.interaction_deleted")
	redirect(w, r, fmt.Sprintf("/clients/%d", it.ClientID))
}

// Complete marks the actor's own follow-up as done. Anything else is ignored
// and redirected as if the id named a client.
func (h *InteractionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	it, err := h.interactions.Complete(r.Context(), actorOf(r), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if it == nil {
		redirect(w, r, fmt.Sprintf("/clients/%d", id))
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.interaction_done")
	redirect(w, r, fmt.Sprintf("/clients/%d", it.ClientID))
}

// renderForm shows the interaction form. client is the client the form was
// opened from; when nil it is looked up from the interaction or the form.
func (h *InteractionHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, id uint, client *models.Client, f interactionForm, errs map[string]string) {
	clients, err := h.clients.Options(r.Context(), actorOf(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if client == nil && id != 0 {
		it, err := h.interactions.Get(r.Context(), actorOf(r), id)
		if err != nil {
			fail(w, r, h.log, err)
			return
		}
		client = it.Client
	}
	if client == nil {
		if i := slices.IndexFunc(clients, func(c models.Client) bool { return c.ID == f.ClientID }); i >= 0 {
			client = &clients[i]
		}
	} else if !slices.ContainsFunc(clients, func(c models.Client) bool { return c.ID == client.ID }) {
		// the interaction's current client stays selectable on edit
		clients = append(clients, *client)
	}

	action, cancel := "/interactions", "/clients"
	if id != 0 {
		action = fmt.Sprintf("/interactions/%d", id)
	}
	if client != nil {
		cancel = fmt.Sprintf("/clients/%d", client.ID)
	}
	data := map[string]any{
		"Form":    f,
		"Clients": clients,
		"Client":  client,
		"Action":  action,
		"Editing": id != 0,
		"Cancel":  cancel,
	}
	if errs != nil {
		data["Errors"] = errs
	}
	render(w, r, h.log, status, "interactions/form.html", data)
}
