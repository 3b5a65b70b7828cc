package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	cfg := config.DatabaseConfig{URL: "sqlite://file:" + t.Name() + "?mode=memory&cache=shared"}
	conn, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	return conn
}

func TestOpen_EnablesForeignKeys(t *testing.T) {
	conn := setupTestDB(t)
	var on int
	require.NoError(t, conn.Raw("PRAGMA foreign_keys").Scan(&on).Error)
	assert.Equal(t, 1, on)
	assert.NoError(t, Ping(context.Background(), conn))
}

func TestMigrate_Idempotent(t *testing.T) {
	conn := setupTestDB(t)
	assert.NoError(t, Migrate(conn))
}

func TestMigrationFilesEmbedded(t *testing.T) {
	up, err := migrationFiles.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"users", "profiles", "clients", "leads", "interactions"} {
		assert.True(t, strings.Contains(string(up), "CREATE TABLE IF NOT EXISTS "+table), table)
	}
	_, err = migrationFiles.ReadFile("migrations/000001_init.down.sql")
	assert.NoError(t, err)
}

func seedGraph(t *testing.T, conn *gorm.DB) (owner, rep models.User, client models.Client, lead models.Lead, it models.Interaction) {
	t.Helper()
	owner = models.User{Username: "owner", Password: "x", Profile: &models.Profile{Position: "Sales"}}
	rep = models.User{Username: "rep", Password: "x", Profile: &models.Profile{}}
	require.NoError(t, conn.Create(&owner).Error)
	require.NoError(t, conn.Create(&rep).Error)

	client = models.Client{Name: "Acme", OwnerID: owner.ID}
	require.NoError(t, conn.Create(&client).Error)

	lead = models.Lead{ClientID: client.ID, Status: models.LeadStatusNew, AssignedToID: &rep.ID, Value: decimal.RequireFromString("1500.50")}
	require.NoError(t, conn.Create(&lead).Error)

	it = models.Interaction{ClientID: client.ID, AuthorID: &rep.ID, Type: models.InteractionCall, Notes: "called", OccurredAt: time.Now()}
	require.NoError(t, conn.Create(&it).Error)
	return
}

func TestCascade_DeleteClient(t *testing.T) {
	conn := setupTestDB(t)
	_, _, client, _, _ := seedGraph(t, conn)

	require.NoError(t, conn.Delete(&models.Client{}, client.ID).Error)

	var leads, interactions int64
	conn.Model(&models.Lead{}).Where("client_id = ?", client.ID).Count(&leads)
	conn.Model(&models.Interaction{}).Where("client_id = ?", client.ID).Count(&interactions)
	assert.Zero(t, leads)
	assert.Zero(t, interactions)
}

func TestCascade_DeleteAssigneeNullsReferences(t *testing.T) {
	conn := setupTestDB(t)
	_, rep, _, lead, it := seedGraph(t, conn)

	require.NoError(t, conn.Delete(&models.User{}, rep.ID).Error)

	var gotLead models.Lead
	require.NoError(t, conn.First(&gotLead, lead.ID).Error)
	assert.Nil(t, gotLead.AssignedToID)
	assert.True(t, gotLead.Value.Equal(decimal.RequireFromString("1500.50")))

	var gotIt models.Interaction
	require.NoError(t, conn.First(&gotIt, it.ID).Error)
	assert.Nil(t, gotIt.AuthorID)

	var profiles int64
	conn.Model(&models.Profile{}).Where("user_id = ?", rep.ID).Count(&profiles)
	assert.Zero(t, profiles)
}

func TestCascade_DeleteOwnerRemovesClients(t *testing.T) {
	conn := setupTestDB(t)
	owner, _, client, lead, _ := seedGraph(t, conn)

	require.NoError(t, conn.Delete(&models.User{}, owner.ID).Error)

	var n int64
	conn.Model(&models.Client{}).Where("id = ?", client.ID).Count(&n)
	assert.Zero(t, n)
	conn.Model(&models.Lead{}).Where("id = ?", lead.ID).Count(&n)
	assert.Zero(t, n)
}

func TestUniqueClientNamePerOwner(t *testing.T) {
	conn := setupTestDB(t)
	owner, rep, _, _, _ := seedGraph(t, conn)

	err := conn.Create(&models.Client{Name: "Acme", OwnerID: owner.ID}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	assert.NoError(t, conn.Create(&models.Client{Name: "Acme", OwnerID: rep.ID}).Error)
}
