package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// leadPayload is the JSON body of lead create and update.
// Dates travel as YYYY-MM-DD strings.
type leadPayload struct {
	ClientID          uint              `json:"client_id"`
	Status            models.LeadStatus `json:"status"`
	Source            string            `json:"source"`
	AssignedToID      *uint             `json:"assigned_to_id"`
	Value             decimal.Decimal   `json:"value"`
	ExpectedCloseDate string            `json:"expected_close_date"`
}

func (p leadPayload) input() (services.LeadInput, bool) {
	d, ok := parseDate(p.ExpectedCloseDate)
	return services.LeadInput{
		ClientID:          p.ClientID,
		Status:            p.Status,
		Source:            p.Source,
		AssignedToID:      p.AssignedToID,
		Value:             p.Value,
		ExpectedCloseDate: d,
	}, ok
}

type interactionPayload struct {
	ClientID     uint                   `json:"client_id"`
	Type         models.InteractionType `json:"interaction_type"`
	Subject      string                 `json:"subject"`
	Notes        string                 `json:"notes"`
	OccurredAt   *time.Time             `json:"occurred_at"`
	FollowUpDate string                 `json:"follow_up_date"`
}

func (p interactionPayload) input() (services.InteractionInput, bool) {
	d, ok := parseDate(p.FollowUpDate)
	in := services.InteractionInput{
		ClientID:     p.ClientID,
		Type:         p.Type,
		Subject:      p.Subject,
		Notes:        p.Notes,
		FollowUpDate: d,
	}
	if p.OccurredAt != nil {
		in.OccurredAt = *p.OccurredAt
	}
	return in, ok
}

type stagePayload struct {
	Status string `json:"status"`
}

func parseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func (a *API) listClients(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := a.svc.Clients.List(r.Context(), actorOf(r), q, queryInt(r, "page"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPage(page, newClientView))
}

func (a *API) createClient(w http.ResponseWriter, r *http.Request) {
	var in services.ClientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "malformed body")
		return
	}
	c, err := a.svc.Clients.Create(r.Context(), actorOf(r), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newClientView(c))
}

func (a *API) getClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	c, err := a.svc.Clients.Get(r.Context(), actorOf(r), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newClientView(c))
}

func (a *API) updateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	var in services.ClientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "malformed body")
		return
	}
	c, err := a.svc.Clients.Update(r.Context(), actorOf(r), id, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newClientView(c))
}

func (a *API) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	if err := a.svc.Clients.Delete(r.Context(), actorOf(r), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (a *API) listLeads(w http.ResponseWriter, r *http.Request) {
	f := services.LeadFilter{Status: r.URL.Query().Get("status"), Page: queryInt(r, "page")}
	page, err := a.svc.Leads.List(r.Context(), actorOf(r), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPage(page, newLeadView))
}

func (a *API) createLead(w http.ResponseWriter, r *http.Request) {
	var p leadPayload
	if err := httpx.DecodeJSON(r, &p); err != nil {
		badRequest(w, "malformed body")
		return
	}
	in, ok := p.input()
	if !ok {
		badRequest(w, "expected_close_date must be YYYY-MM-DD")
		return
	}
	l, err := a.svc.Leads.Create(r.Context(), actorOf(r), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newLeadView(l))
}

func (a *API) getLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	l, err := a.svc.Leads.Get(r.Context(), actorOf(r), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newLeadView(l))
}

func (a *API) updateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	var p leadPayload
	if err := httpx.DecodeJSON(r, &p); err != nil {
		badRequest(w, "malformed body")
		return
	}
	in, ok := p.input()
	if !ok {
		badRequest(w, "expected_close_date must be YYYY-MM-DD")
		return
	}
	l, err := a.svc.Leads.Update(r.Context(), actorOf(r), id, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newLeadView(l))
}

func (a *API) deleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	if err := a.svc.Leads.Delete(r.Context(), actorOf(r), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// stageLead moves a lead to another pipeline status.
func (a *API) stageLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	var p stagePayload
	if err := httpx.DecodeJSON(r, &p); err != nil {
		badRequest(w, "malformed body")
		return
	}
	l, err := a.svc.Leads.Transition(r.Context(), actorOf(r), id, p.Status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newLeadView(l))
}

func (a *API) listInteractions(w http.ResponseWriter, r *http.Request) {
	f := services.InteractionFilter{Page: queryInt(r, "page")}
	if s := r.URL.Query().Get("client_id"); s != "" {
		n := queryInt(r, "client_id")
		if n <= 0 {
			badRequest(w, "malformed client_id")
			return
		}
		f.ClientID = uint(n)
	}
	page, err := a.svc.Interactions.List(r.Context(), actorOf(r), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPage(page, newInteractionView))
}

func (a *API) createInteraction(w http.ResponseWriter, r *http.Request) {
	var p interactionPayload
	if err := httpx.DecodeJSON(r, &p); err != nil {
		badRequest(w, "malformed body")
		return
	}
	in, ok := p.input()
	if !ok {
		badRequest(w, "follow_up_date must be YYYY-MM-DD")
		return
	}
	it, err := a.svc.Interactions.Create(r.Context(), actorOf(r), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newInteractionView(it))
}

func (a *API) getInteraction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	it, err := a.svc.Interactions.Get(r.Context(), actorOf(r), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInteractionView(it))
}

func (a *API) updateInteraction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	var p interactionPayload
	if err := httpx.DecodeJSON(r, &p); err != nil {
		badRequest(w, "malformed body")
		return
	}
	in, ok := p.input()
	if !ok {
		badRequest(w, "follow_up_date must be YYYY-MM-DD")
		return
	}
	it, err := a.svc.Interactions.Update(r.Context(), actorOf(r), id, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInteractionView(it))
}

func (a *API) deleteInteraction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	if err := a.svc.Interactions.Delete(r.Context(), actorOf(r), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// completeInteraction answers 204 when there was nothing to complete.
func (a *API) completeInteraction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "malformed id")
		return
	}
	it, err := a.svc.Interactions.Complete(r.Context(), actorOf(r), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if it == nil {
		httpx.NoContent(w)
		return
	}
	httpx.JSON(w, http.StatusOK, newInteractionView(it))
}
