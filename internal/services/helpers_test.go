package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 3, 7, 9, 5, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{URL: "sqlite://file:" + t.Name() + "?mode=memory&cache=shared"}
	conn, err := db.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

type recordingSender struct {
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type memoryStore struct {
	saved map[string][]byte
	err   error
}

func (s *memoryStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[key] = b
	return "https://cdn.test/" + key, nil
}

var errBoom = errors.New("boom")

// world is a small tenant graph shared by most tests:
// owner owns acme; rep is assigned to acme's lead without owning acme;
// outsider has no relation to either.
type world struct {
	db       *gorm.DB
	owner    *models.User
	rep      *models.User
	outsider *models.User
	admin    *models.User
	super    *models.User
	acme     *models.Client
	lead     *models.Lead
	note     *models.Interaction
}

func createUser(t *testing.T, conn *gorm.DB, username, position string, superuser bool) *models.User {
	t.Helper()
	u := &models.User{
		Username:    username,
		Password:    "x",
		IsSuperuser: superuser,
		IsActive:    true,
		Profile:     &models.Profile{Position: position},
	}
	require.NoError(t, conn.Create(u).Error)
	return u
}

func newWorld(t *testing.T) *world {
	t.Helper()
	conn := setupTestDB(t)
	w := &world{db: conn}
	w.owner = createUser(t, conn, "owner", "Sales", false)
	w.rep = createUser(t, conn, "rep", "", false)
	w.outsider = createUser(t, conn, "outsider", "", false)
	w.admin = createUser(t, conn, "admin", "Admin", false)
	w.super = createUser(t, conn, "root", "", true)

	w.acme = &models.Client{Name: "Acme", Email: "hi@acme.test", OwnerID: w.owner.ID}
	require.NoError(t, conn.Create(w.acme).Error)

	w.lead = &models.Lead{ClientID: w.acme.ID, Status: models.LeadStatusNew, AssignedToID: &w.rep.ID, Value: decimal.RequireFromString("1000.50")}
	require.NoError(t, conn.Create(w.lead).Error)

	w.note = &models.Interaction{ClientID: w.acme.ID, AuthorID: &w.owner.ID, Type: models.InteractionCall, Notes: "first call", OccurredAt: fixedNow.Add(-time.Hour)}
	require.NoError(t, conn.Create(w.note).Error)
	return w
}

func actor(u *models.User) *policy.Actor {
	return policy.NewActor(u)
}

func clock() time.Time { return fixedNow }
