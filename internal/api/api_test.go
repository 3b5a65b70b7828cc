package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type discardSender struct{}

func (discardSender) Send(context.Context, mail.Message) error { return nil }

type fixture struct {
	db      *gorm.DB
	handler http.Handler

	owner, rep, outsider, admin *models.User
	acme                        *models.Client
	lead                        *models.Lead
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DatabaseConfig{URL: "sqlite://file:api_" + t.Name() + "?mode=memory&cache=shared"}
	conn, err := db.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{db: conn}
	f.owner = f.user(t, "owner", "Sales")
	f.rep = f.user(t, "rep", "")
	f.outsider = f.user(t, "outsider", "")
	f.admin = f.user(t, "admin", "Admin")

	f.acme = &models.Client{Name: "Acme", OwnerID: f.owner.ID}
	require.NoError(t, conn.Create(f.acme).Error)
	f.lead = &models.Lead{ClientID: f.acme.ID, Status: models.LeadStatusNew, AssignedToID: &f.rep.ID, Value: decimal.RequireFromString("250")}
	require.NoError(t, conn.Create(f.lead).Error)

	svc := services.New(conn, discardSender{}, nil, zerolog.Nop())
	r := chi.NewRouter()
	r.Mount("/api", New(svc, zerolog.Nop()).Routes())
	f.handler = r
	return f
}

func (f *fixture) user(t *testing.T, username, position string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, Password: string(hash), IsActive: true, Profile: &models.Profile{Position: position}}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

// do sends a request as u, or anonymously when u is nil.
func (f *fixture) do(method, target, body string, u *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		ctx := auth.WithUserID(req.Context(), u.ID)
		req = req.WithContext(policy.WithActor(ctx, policy.NewActor(u)))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestIssueToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/token", `{"username":"owner","password":"s3cret-pass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[tokenResponse](t, rec)
	uid, err := auth.ParseToken(got.Token)
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, uid)
	assert.NotEmpty(t, got.ExpiresAt)

	rec = f.do(http.MethodPost, "/api/auth/token", `{"username":"owner","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_credentials"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/auth/token", `{"user":"owner"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientsCRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/clients", `{"name":"Globex","email":"ops@globex.test"}`, f.owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[clientView](t, rec)
	assert.Equal(t, f.owner.ID, created.OwnerID)

	rec = f.do(http.MethodGet, "/api/clients?q=glob", "", f.owner)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, page["total"])
	assert.EqualValues(t, 1, page["page"])
	assert.EqualValues(t, services.PageSize, page["page_size"])

	rec = f.do(http.MethodPut, "/api/clients/"+itoa(created.ID), `{"name":"Globex Corp"}`, f.owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Globex Corp", decode[clientView](t, rec).Name)

	rec = f.do(http.MethodGet, "/api/clients/"+itoa(created.ID), "", f.outsider)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())

	rec = f.do(http.MethodDelete, "/api/clients/"+itoa(created.ID), "", f.owner)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodGet, "/api/clients/"+itoa(created.ID), "", f.owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/clients", `{"name":"Acme"}`, f.owner)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "validation_error", body["error"])
	assert.Equal(t, map[string]any{"name": "already_exists"}, body["details"])

	rec = f.do(http.MethodPost, "/api/clients", `{"name":"X","colour":"red"}`, f.owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/clients/abc", "", f.owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeads(t *testing.T) {
	f := newFixture(t)

	body := `{"client_id":` + itoa(f.acme.ID) + `,"value":"99.90","expected_close_date":"2024-05-01"}`
	rec := f.do(http.MethodPost, "/api/leads", body, f.owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	l := decode[leadView](t, rec)
	assert.Equal(t, models.LeadStatusNew, l.Status)
	assert.True(t, decimal.RequireFromString("99.90").Equal(l.Value))
	require.NotNil(t, l.ExpectedCloseDate)
	assert.Equal(t, "2024-05-01", *l.ExpectedCloseDate)

	rec = f.do(http.MethodPost, "/api/leads", `{"client_id":1,"expected_close_date":"01/05/2024"}`, f.owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/leads?status=won", "", f.owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, rec)["total"])

	rec = f.do(http.MethodGet, "/api/leads?status=bogus", "", f.owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decode[map[string]any](t, rec)["error"])

	rec = f.do(http.MethodGet, "/api/leads/"+itoa(f.lead.ID), "", f.rep)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[leadView](t, rec)
	require.NotNil(t, got.Client)
	assert.Equal(t, "Acme", got.Client.Name)
}

func TestLeadStage(t *testing.T) {
	f := newFixture(t)
	target := "/api/leads/" + itoa(f.lead.ID) + "/stage"

	rec := f.do(http.MethodPost, target, `{"status":"proposal"}`, f.rep)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.LeadStatusProposal, decode[leadView](t, rec).Status)

	rec = f.do(http.MethodPost, target, `{"status":"proposal"}`, f.outsider)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	rec = f.do(http.MethodPost, target, `{"status":"archived"}`, f.rep)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "archived")

	rec = f.do(http.MethodPost, "/api/leads/9999/stage", `{"status":"won"}`, f.rep)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInteractions(t *testing.T) {
	f := newFixture(t)

	body := `{"client_id":` + itoa(f.acme.ID) + `,"interaction_type":"call","notes":"intro","occurred_at":"2024-03-01T10:00:00Z","follow_up_date":"2024-03-10"}`
	rec := f.do(http.MethodPost, "/api/interactions", body, f.owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	it := decode[interactionView](t, rec)
	require.NotNil(t, it.AuthorID)
	assert.Equal(t, f.owner.ID, *it.AuthorID)

	rec = f.do(http.MethodGet, "/api/interactions?client_id="+itoa(f.acme.ID), "", f.owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["total"])

	rec = f.do(http.MethodGet, "/api/interactions?client_id=x", "", f.owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/interactions", `{"client_id":`+itoa(f.acme.ID)+`}`, f.owner)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"notes"`)

	// only the author may complete the follow-up
	complete := "/api/interactions/" + itoa(it.ID) + "/complete"
	rec = f.do(http.MethodPost, complete, "", f.rep)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodPost, complete, "", f.owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[interactionView](t, rec)
	assert.Nil(t, done.FollowUpDate)
	assert.True(t, strings.HasPrefix(done.Notes, "intro\n\nCompleted on "))

	rec = f.do(http.MethodDelete, "/api/interactions/"+itoa(it.ID), "", f.owner)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDashboardAndUsers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(f.lead).Update("status", models.LeadStatusWon).Error)

	rec := f.do(http.MethodGet, "/api/dashboard", "", f.owner)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[dashboardView](t, rec)
	assert.EqualValues(t, 1, d.LeadsTotal)
	assert.Equal(t, 100.0, d.ConversionRate)
	require.Len(t, d.SalesByUser, 1)
	assert.Equal(t, "rep", d.SalesByUser[0].Username)

	rec = f.do(http.MethodGet, "/api/users", "", f.owner)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/users", "", f.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]adminUserView](t, rec)
	assert.Len(t, users, 4)
	assert.NotContains(t, rec.Body.String(), "password")
	for _, u := range users {
		if u.Username == "admin" {
			assert.Equal(t, "Admin", u.Position)
			assert.True(t, u.IsActive)
		}
	}
}

func TestNestedUsersExposeIdentityOnly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(f.rep).Update("is_superuser", true).Error)
	require.NoError(t, f.db.Create(&models.Interaction{
		ClientID: f.acme.ID, AuthorID: &f.rep.ID, Type: models.InteractionNote, Notes: "hello", OccurredAt: time.Now(),
	}).Error)

	for _, target := range []string{
		"/api/leads/" + itoa(f.lead.ID),
		"/api/leads",
		"/api/interactions",
		"/api/dashboard",
	} {
		rec := f.do(http.MethodGet, target, "", f.owner)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"username":"rep"`, target)
		assert.NotContains(t, rec.Body.String(), "is_superuser", target)
		assert.NotContains(t, rec.Body.String(), "is_active", target)
		assert.NotContains(t, rec.Body.String(), "profile", target)
	}

	rec := f.do(http.MethodGet, "/api/leads/"+itoa(f.lead.ID), "", f.owner)
	got := decode[map[string]any](t, rec)
	assigned, ok := got["assigned_to"].(map[string]any)
	require.True(t, ok)
	keys := make([]string, 0, len(assigned))
	for k := range assigned {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"id", "username", "first_name", "last_name", "email"}, keys)
}

func TestWriteError(t *testing.T) {
	a := New(nil, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrNotFound, http.StatusNotFound, "not_found"},
		{services.ErrForbidden, http.StatusForbidden, "forbidden"},
		{&services.ArgumentError{Reason: "bad"}, http.StatusBadRequest, "invalid_argument"},
		{&services.ValidationError{Fields: map[string]string{"name": "required"}}, http.StatusUnprocessableEntity, "validation_error"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{services.ErrUpstream, http.StatusBadGateway, "upstream_failure"},
		{assert.AnError, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		a.writeError(rec, req, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.code)
		assert.Equal(t, tc.code, decode[map[string]any](t, rec)["error"])
	}
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
