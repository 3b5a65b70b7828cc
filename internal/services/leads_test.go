package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadVisibility(t *testing.T) {
	w := newWorld(t)
	svc := NewLeadService(w.db, zerolog.Nop())
	ctx := context.Background()

	// a lead on an owned client with nobody assigned
	unassigned := &models.Lead{ClientID: w.acme.ID, Status: models.LeadStatusContact, Value: decimal.Zero}
	require.NoError(t, w.db.Create(unassigned).Error)

	cases := []struct {
		who  *models.User
		want int64
	}{
		{w.owner, 2},    // owns the client
		{w.rep, 1},      // assigned, does not own
		{w.outsider, 0}, // neither
		{w.super, 2},
	}
	for _, c := range cases {
		page, err := svc.List(ctx, actor(c.who), LeadFilter{})
		require.NoError(t, err)
		assert.Equal(t, c.want, page.Total, c.who.Username)
	}

	_, err := svc.Get(ctx, actor(w.rep), unassigned.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := svc.Get(ctx, actor(w.rep), w.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Client.Name)
}

func TestLeadList_StatusFilterAndInteractionCount(t *testing.T) {
	w := newWorld(t)
	svc := NewLeadService(w.db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, w.db.Create(&models.Interaction{ClientID: w.acme.ID, Notes: "x", OccurredAt: fixedNow}).Error)

	page, err := svc.List(ctx, actor(w.owner), LeadFilter{Status: "new"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].InteractionCount)
	assert.Equal(t, "rep", page.Items[0].AssignedTo.Username)

	page, err = svc.List(ctx, actor(w.owner), LeadFilter{Status: "won"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = svc.List(ctx, actor(w.owner), LeadFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	var ae *ArgumentError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Reason, "bogus")
}

func TestLeadBoard(t *testing.T) {
	w := newWorld(t)
	svc := NewLeadService(w.db, zerolog.Nop())

	cols, err := svc.Board(context.Background(), actor(w.owner))
	require.NoError(t, err)
	require.Len(t, cols, 5)
	for i, st := range models.LeadStatuses() {
		assert.Equal(t, st, cols[i].Status)
	}
	assert.Len(t, cols[0].Leads, 1)
	assert.Empty(t, cols[3].Leads)

	cols, err = svc.Board(context.Background(), actor(w.outsider))
	require.NoError(t, err)
	require.Len(t, cols, 5)
	for _, c := range cols {
		assert.Empty(t, c.Leads)
	}
}

func TestLeadTransition(t *testing.T) {
	w := newWorld(t)
	svc := NewLeadService(w.db, zerolog.Nop())
	svc.now = clock
	ctx := context.Background()

	l, err := svc.Transition(ctx, actor(w.owner), w.lead.ID, "won")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusWon, l.Status)

	var stored models.Lead
	require.NoError(t, w.db.First(&stored, w.lead.ID).Error)
	assert.Equal(t, models.LeadStatusWon, stored.Status)
	assert.True(t, stored.UpdatedAt.Equal(fixedNow))
	assert.True(t, stored.Value.Equal(decimal.RequireFromString("1000.50")))

	// terminal statuses are not sticky
	_, err = svc.Transition(ctx, actor(w.rep), w.lead.ID, "new")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, actor(w.owner), w.lead.ID, "bogus")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Transition(ctx, actor(w.outsider), w.lead.ID, "lost")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Transition(ctx, actor(w.owner), 9999, "won")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.db.First(&stored, w.lead.ID).Error)
	assert.Equal(t, models.LeadStatusNew, stored.Status)

	_, err = svc.Transition(ctx, actor(w.super), w.lead.ID, "proposal")
	assert.NoError(t, err)
}

func TestLeadCreate(t *testing.T) {
	w := newWorld(t)
	svc := NewLeadService(w.db, zerolog.Nop())
	ctx := context.Background()
	closeDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	l, err := svc.Create(ctx, actor(w.owner), LeadInput{
		ClientID:          w.acme.ID,
		Source:            "referral",
		AssignedToID:      &w.owner.ID,
		Value:             decimal.RequireFromString("250.75"),
		ExpectedCloseDate: &closeDate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNew, l.Status)
	assert.True(t, l.Value.Equal(decimal.RequireFromString("250.75")))
	require.NotNil(t, l.ExpectedCloseDate)
	assert.Equal(t, "2024-06-01", l.ExpectedCloseDate.Format("2006-01-02"))

	// rep does not own acme, so acme is not a valid choice on create
	_, err = svc.Create(ctx, actor(w.rep), LeadInput{ClientID: w.acme.ID})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "invalid_choice", ve.Fields["client_id"])

	inactive := createUser(t, w.db, "gone", "", false)
	require.NoError(t, w.db.Model(inactive).Update("is_active", false).Error)

	_, err = svc.Create(ctx, actor(w.owner), LeadInput{
		ClientID:     w.acme.ID,
		Status:       "bogus",
		AssignedToID: &inactive.ID,
		Value:        decimal.RequireFromString("1.234"),
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "invalid_choice", ve.Fields["status"])
	assert.Equal(t, "invalid_choice", ve.Fields["assigned_to_id"])
	assert.Equal(t, "too_many_decimal_places", ve.Fields["value"])

	_, err = svc.Create(ctx, actor(w.owner), LeadInput{ClientID: w.acme.ID, Value: decimal.RequireFromString("-1")})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "must_not_be_negative", ve.Fields["value"])

	_, err = svc.Create(ctx, actor(w.owner), LeadInput{})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["client_id"])
}

func TestLeadUpdate(t *testing.T) {
	w := newWorld(t)
	svc := NewLeadService(w.db, zerolog.Nop())
	svc.now = clock
	ctx := context.Background()

	// the assignee may edit a lead on a client they do not own
	l, err := svc.Update(ctx, actor(w.rep), w.lead.ID, LeadInput{
		ClientID:     w.acme.ID,
		Status:       models.LeadStatusProposal,
		AssignedToID: &w.rep.ID,
		Value:        decimal.RequireFromString("2000"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusProposal, l.Status)
	assert.True(t, l.Value.Equal(decimal.NewFromInt(2000)))

	_, err = svc.Update(ctx, actor(w.outsider), w.lead.ID, LeadInput{ClientID: w.acme.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	// clearing the assignee hides the lead from the former assignee; the
	// returned lead still reflects every written field
	closeBy := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	l, err = svc.Update(ctx, actor(w.rep), w.lead.ID, LeadInput{
		ClientID:          w.acme.ID,
		Status:            models.LeadStatusWon,
		Source:            "referral",
		Value:             decimal.RequireFromString("3100.50"),
		ExpectedCloseDate: &closeBy,
	})
	require.NoError(t, err)
	assert.Nil(t, l.AssignedToID)
	assert.Equal(t, models.LeadStatusWon, l.Status)
	assert.Equal(t, "referral", l.Source)
	assert.True(t, l.Value.Equal(decimal.RequireFromString("3100.50")))
	require.NotNil(t, l.ExpectedCloseDate)
	assert.Equal(t, "2024-07-01", l.ExpectedCloseDate.Format("2006-01-02"))
	assert.Equal(t, fixedNow.Unix(), l.UpdatedAt.Unix())
	_, err = svc.Get(ctx, actor(w.rep), w.lead.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeadDelete(t *testing.T) {
	w := newWorld(t)
	svc := NewLeadService(w.db, zerolog.Nop())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, actor(w.outsider), w.lead.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, actor(w.rep), w.lead.ID))
	assert.ErrorIs(t, svc.Delete(ctx, actor(w.rep), w.lead.ID), ErrNotFound)
}
