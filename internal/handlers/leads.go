package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type LeadHandler struct {
	leads    *services.LeadService
	clients  *services.ClientService
	accounts *services.AccountService
	log      zerolog.Logger
}

func NewLeadHandler(leads *services.LeadService, clients *services.ClientService, accounts *services.AccountService, log zerolog.Logger) *LeadHandler {
	return &LeadHandler{leads: leads, clients: clients, accounts: accounts, log: log}
}

// leadForm is the lead form as typed by the user.
type leadForm struct {
	ClientID          uint
	Status            models.LeadStatus
	Source            string
	AssignedToID      uint
	Value             string
	ExpectedCloseDate string
}

func readLeadForm(r *http.Request) leadForm {
	return leadForm{
		ClientID:          uintValue(r.FormValue("client_id")),
		Status:            models.LeadStatus(r.FormValue("status")),
		Source:            r.FormValue("source"),
		AssignedToID:      uintValue(r.FormValue("assigned_to_id")),
		Value:             strings.TrimSpace(r.FormValue("value")),
		ExpectedCloseDate: r.FormValue("expected_close_date"),
	}
}

// input converts the form; unparsable values are reported as field errors.
func (f leadForm) input() (services.LeadInput, map[string]string) {
	errs := map[string]string{}
	in := services.LeadInput{ClientID: f.ClientID, Status: f.Status, Source: f.Source}
	if f.AssignedToID != 0 {
		id := f.AssignedToID
		in.AssignedToID = &id
	}
	if f.Value != "" {
		d, err := decimal.NewFromString(f.Value)
		if err != nil {
			errs["value"] = "invalid_number"
		}
		in.Value = d
	}
	d, ok := parseDate(f.ExpectedCloseDate)
	if !ok {
		errs["expected_close_date"] = "invalid_date"
	}
	in.ExpectedCloseDate = d
	return in, errs
}

// List shows the visible leads, optionally filtered by status.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	page, err := h.leads.List(r.Context(), actorOf(r), services.LeadFilter{Status: status, Page: pageParam(r)})
	if err != nil {
		if errors.Is(err, services.ErrInvalidArgument) {
			flash(w, r, auth.FlashError, "flash.invalid_status")
			redirect(w, r, "/leads")
			return
		}
		fail(w, r, h.log, err)
		return
	}
	render(w, r, h.log, http.StatusOK, "leads/index.html", map[string]any{
		"Page":   page,
		"Status": status,
		"Pager":  newPager(page, "/leads", url.Values{"status": {status}}),
	})
}

// Board shows the pipeline, one column per status.
func (h *LeadHandler) Board(w http.ResponseWriter, r *http.Request) {
	cols, err := h.leads.Board(r.Context(), actorOf(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	render(w, r, h.log, http.StatusOK, "pipeline.html", map[string]any{"Columns": cols})
}

func (h *LeadHandler) New(w http.ResponseWriter, r *http.Request) {
	f := leadForm{
		ClientID: uintValue(r.URL.Query().Get("client_id")),
		Status:   models.LeadStatusNew,
		Value:    "0.00",
	}
	if a := actorOf(r); a != nil && !a.Privileged {
		f.AssignedToID = a.UserID
	}
	h.renderForm(w, r, http.StatusOK, 0, f, nil)
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	f := readLeadForm(r)
	in, errs := f.input()
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, 0, f, errs)
		return
	}
	l, err := h.leads.Create(r.Context(), actorOf(r), in)
	if err != nil {
		if errs, ok := violations(err); ok {
			h.renderForm(w, r, http.StatusUnprocessableEntity, 0, f, errs)
			return
		}
		fail(w, r, h.log, err)
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.lead_created")
	redirect(w, r, fmt.Sprintf("/leads/%d", l.ID))
}

func (h *LeadHandler) View(w http.ResponseWriter, r *http.Request) {
	l, err := h.leads.Get(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	render(w, r, h.log, http.StatusOK, "leads/view.html", map[string]any{"Lead": l})
}

func (h *LeadHandler) Edit(w http.ResponseWriter, r *http.Request) {
	l, err := h.leads.Get(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	f := leadForm{
		ClientID:          l.ClientID,
		Status:            l.Status,
		Source:            l.Source,
		Value:             l.Value.StringFixed(2),
		ExpectedCloseDate: formatDate(l.ExpectedCloseDate),
	}
	if l.AssignedToID != nil {
		f.AssignedToID = *l.AssignedToID
	}
	h.renderForm(w, r, http.StatusOK, l.ID, f, nil)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	action := fmt.Sprintf("/leads/%d", id)
	f := readLeadForm(r)
	in, errs := f.input()
	if len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, id, f, errs)
		return
	}
	if _, err := h.leads.Update(r.Context(), actorOf(r), id, in); err != nil {
		if errs, ok := violations(err); ok {
			h.renderForm(w, r, http.StatusUnprocessableEntity, id, f, errs)
			return
		}
		fail(w, r, h.log, err)
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.lead_updated")
	redirect(w, r, action)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.leads.Delete(r.Context(), actorOf(r), idParam(r)); err != nil {
		fail(w, r, h.log, err)
		return
	}
	flash(w, r, auth.FlashSuccess, "flash.lead_deleted")
	redirect(w, r, "/leads")
}

// Stage moves a lead to the posted status and redirects back with a flash message.
func (h *LeadHandler) Stage(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	next := r.FormValue("next")
	if !localPath(next) {
		next = fmt.Sprintf("/leads/%d", id)
	}

	_, err := h.leads.Transition(r.Context(), actorOf(r), id, r.FormValue("status"))
	switch {
	case err == nil:
		flash(w, r, auth.FlashSuccess, "flash.pipeline_updated")
	case errors.Is(err, services.ErrNotFound):
		flash(w, r, auth.FlashError, "flash.lead_not_found")
		next = "/leads"
	case errors.Is(err, services.ErrForbidden):
		flash(w, r, auth.FlashError, "flash.lead_forbidden")
	case errors.Is(err, services.ErrInvalidArgument):
		flash(w, r, auth.FlashError, "flash.invalid_status")
	default:
		h.log.Error().Err(err).Msg("stage transition failed")
		flash(w, r, auth.FlashError, "flash.error")
	}
	redirect(w, r, next)
}

// renderForm shows the lead form. leadID is zero on create; on edit the
// lead's current client and assignee are offered even when the actor
// could not pick them.
func (h *LeadHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, leadID uint, f leadForm, errs map[string]string) {
	clients, err := h.clients.Options(r.Context(), actorOf(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	users, err := h.accounts.ActiveUsers(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	action, cancel := "/leads", "/leads"
	if leadID != 0 {
		action = fmt.Sprintf("/leads/%d", leadID)
		cancel = action
		l, err := h.leads.Get(r.Context(), actorOf(r), leadID)
		if err != nil {
			fail(w, r, h.log, err)
			return
		}
		if l.Client != nil && !slices.ContainsFunc(clients, func(c models.Client) bool { return c.ID == l.ClientID }) {
			clients = append(clients, *l.Client)
		}
		if l.AssignedTo != nil && !slices.ContainsFunc(users, func(u models.User) bool { return u.ID == l.AssignedTo.ID }) {
			users = append(users, *l.AssignedTo)
		}
	}

	data := map[string]any{
		"Form":    f,
		"Clients": clients,
		"Users":   users,
		"Action":  action,
		"Editing": leadID != 0,
		"Cancel":  cancel,
	}
	if errs != nil {
		data["Errors"] = errs
	}
	render(w, r, h.log, status, "leads/form.html", data)
}
