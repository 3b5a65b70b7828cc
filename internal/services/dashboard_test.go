package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.0, ConversionRate(0, 0))
	assert.Equal(t, 33.33, ConversionRate(1, 3))
	assert.Equal(t, 66.67, ConversionRate(2, 3))
	assert.Equal(t, 100.0, ConversionRate(4, 4))
}

func TestDashboard_Empty(t *testing.T) {
	conn := setupTestDB(t)
	u := createUser(t, conn, "lonely", "", false)
	svc := NewDashboardService(conn, zerolog.Nop())
	svc.now = clock

	d, err := svc.Build(context.Background(), actor(u))
	require.NoError(t, err)
	require.Len(t, d.Pipeline, 5)
	for i, st := range models.LeadStatuses() {
		assert.Equal(t, st, d.Pipeline[i].Status)
		assert.Zero(t, d.Pipeline[i].Count)
		assert.True(t, d.Pipeline[i].Value.IsZero())
	}
	assert.Equal(t, 0.0, d.ConversionRate)
	assert.Empty(t, d.SalesByUser)
	assert.Empty(t, d.RecentInteractions)
	assert.Zero(t, d.LeadsTotal)
	assert.True(t, d.GeneratedAt.Equal(fixedNow))
}

func TestDashboard_Aggregates(t *testing.T) {
	w := newWorld(t)
	svc := NewDashboardService(w.db, zerolog.Nop())
	ctx := context.Background()

	won := func(assignee *uint, value string) {
		l := &models.Lead{ClientID: w.acme.ID, Status: models.LeadStatusWon, AssignedToID: assignee, Value: decimal.RequireFromString(value)}
		require.NoError(t, w.db.Create(l).Error)
	}
	won(&w.rep.ID, "500.25")
	won(&w.rep.ID, "100")
	won(nil, "50.50")
	won(&w.owner.ID, "10")

	// another tenant's data never leaks into owner's figures
	other := &models.Client{Name: "Other", OwnerID: w.outsider.ID}
	require.NoError(t, w.db.Create(other).Error)
	require.NoError(t, w.db.Create(&models.Lead{ClientID: other.ID, Status: models.LeadStatusWon, Value: decimal.NewFromInt(9999)}).Error)

	for i := 0; i < 12; i++ {
		require.NoError(t, w.db.Create(&models.Interaction{
			ClientID: w.acme.ID, AuthorID: &w.owner.ID, Notes: fmt.Sprintf("n%d", i),
			OccurredAt: fixedNow.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	d, err := svc.Build(ctx, actor(w.owner))
	require.NoError(t, err)

	assert.Equal(t, int64(5), d.LeadsTotal)
	assert.Equal(t, int64(1), d.Pipeline[0].Count)
	assert.Equal(t, int64(4), d.Pipeline[3].Count)
	assert.True(t, d.Pipeline[3].Value.Equal(decimal.RequireFromString("660.75")), d.Pipeline[3].Value.String())
	assert.Equal(t, 80.0, d.ConversionRate)

	require.Len(t, d.SalesByUser, 3)
	assert.Equal(t, "owner", d.SalesByUser[0].Username)
	assert.Equal(t, "rep", d.SalesByUser[1].Username)
	assert.True(t, d.SalesByUser[1].Total.Equal(decimal.RequireFromString("600.25")))
	assert.True(t, d.SalesByUser[2].Unassigned)
	assert.True(t, d.SalesByUser[2].Total.Equal(decimal.RequireFromString("50.5")))

	require.Len(t, d.RecentInteractions, 10)
	assert.Equal(t, "n11", d.RecentInteractions[0].Notes)
	assert.Equal(t, int64(13), d.InteractionsTotal)
	assert.Equal(t, int64(1), d.ClientsTotal)

	// the assignee sees only its own leads
	d, err = svc.Build(ctx, actor(w.rep))
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.LeadsTotal)
	assert.Zero(t, d.ClientsTotal)
	assert.Equal(t, 66.67, d.ConversionRate)

	d, err = svc.Build(ctx, &policy.Actor{UserID: w.super.ID, Privileged: true})
	require.NoError(t, err)
	assert.Equal(t, int64(6), d.LeadsTotal)
	assert.Equal(t, int64(2), d.ClientsTotal)
}
