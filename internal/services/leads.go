package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LeadInput holds the editable lead fields. An empty Status means new.
type LeadInput struct {
	ClientID          uint              `json:"client_id" validate:"required"`
	Status            models.LeadStatus `json:"status"`
	Source            string            `json:"source" validate:"max=120"`
	AssignedToID      *uint             `json:"assigned_to_id"`
	Value             decimal.Decimal   `json:"value"`
	ExpectedCloseDate *time.Time        `json:"expected_close_date"`
}

func (in LeadInput) fields(now time.Time) map[string]any {
	return map[string]any{
		"client_id":           in.ClientID,
		"status":              in.Status,
		"source":              in.Source,
		"assigned_to_id":      in.AssignedToID,
		"value":               in.Value,
		"expected_close_date": in.ExpectedCloseDate,
		"updated_at":          now,
	}
}

// LeadFilter narrows a lead list. Status must be empty or a known status.
type LeadFilter struct {
	Status string
	Page   int
}

// BoardColumn is one pipeline stage with its leads.
type BoardColumn struct {
	Status models.LeadStatus
	Leads  []models.Lead
}

type LeadService struct {
	db   *gorm.DB
	gate *gate.Gate[*policy.Actor]
	log  zerolog.Logger
	now  func() time.Time
}

func NewLeadService(db *gorm.DB, log zerolog.Logger) *LeadService {
	return &LeadService{db: db, gate: policy.NewGate(), log: log, now: time.Now}
}

func (s *LeadService) visible(ctx context.Context, actor *policy.Actor) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Lead{}).Scopes(policy.VisibleLeads(actor))
}

// List returns one page of visible leads, most recently updated first, each
// carrying the number of interactions recorded on its client.
func (s *LeadService) List(ctx context.Context, actor *policy.Actor, f LeadFilter) (Page[models.Lead], error) {
	out := Page[models.Lead]{Number: normalizePage(f.Page), PageSize: PageSize}
	status := models.LeadStatus(strings.TrimSpace(f.Status))
	if status != "" && !status.Valid() {
		return out, invalidArgument("unknown status %q", f.Status)
	}
	query := func() *gorm.DB {
		db := s.visible(ctx, actor)
		if status != "" {
			db = db.Where("leads.status = ?", status)
		}
		return db
	}
	if err := query().Count(&out.Total).Error; err != nil {
		return out, err
	}
	err := query().
		Select("leads.*, (SELECT COUNT(*) FROM interactions WHERE interactions.client_id = leads.client_id) AS interaction_count").
		Preload("Client").Preload("AssignedTo").
		Order("leads.updated_at DESC, leads.id DESC").
		Scopes(paginate(f.Page)).
		Find(&out.Items).Error
	return out, err
}

// Board groups every visible lead by status, one column per status in pipeline order.
func (s *LeadService) Board(ctx context.Context, actor *policy.Actor) ([]BoardColumn, error) {
	var leads []models.Lead
	err := s.visible(ctx, actor).Preload("Client").Preload("AssignedTo").
		Order("leads.updated_at DESC, leads.id DESC").Find(&leads).Error
	if err != nil {
		return nil, err
	}
	statuses := models.LeadStatuses()
	cols := make([]BoardColumn, len(statuses))
	index := make(map[models.LeadStatus]int, len(statuses))
	for i, st := range statuses {
		cols[i] = BoardColumn{Status: st, Leads: []models.Lead{}}
		index[st] = i
	}
	for _, l := range leads {
		if i, ok := index[l.Status]; ok {
			cols[i].Leads = append(cols[i].Leads, l)
		}
	}
	return cols, nil
}

func (s *LeadService) Get(ctx context.Context, actor *policy.Actor, id uint) (*models.Lead, error) {
	var l models.Lead
	if err := s.visible(ctx, actor).Preload("Client").Preload("AssignedTo").First(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// validate checks the input. current is the lead being edited, nil on create:
// its client and assignee stay acceptable even when the actor could not pick them.
func (s *LeadService) validate(ctx context.Context, actor *policy.Actor, in *LeadInput, current *models.Lead) error {
	if in.Status == "" {
		in.Status = models.LeadStatusNew
	}
	in.Source = strings.TrimSpace(in.Source)

	v := validation.Struct(*in)
	if !in.Status.Valid() {
		v.Add("status", "invalid_choice")
	}
	validation.Decimal("value", in.Value, 12, 2, v)

	db := s.db.WithContext(ctx)
	if in.ClientID != 0 && (current == nil || in.ClientID != current.ClientID) {
		var n int64
		err := db.Model(&models.Client{}).Scopes(policy.VisibleClients(actor)).
			Where("clients.id = ?", in.ClientID).Count(&n).Error
		if err != nil {
			return err
		}
		if n == 0 {
			v.Add("client_id", "invalid_choice")
		}
	}
	if in.AssignedToID != nil && (current == nil || !current.IsAssignedTo(*in.AssignedToID)) {
		var n int64
		err := db.Model(&models.User{}).Where("id = ? AND is_active = ?", *in.AssignedToID, true).Count(&n).Error
		if err != nil {
			return err
		}
		if n == 0 {
			v.Add("assigned_to_id", "invalid_choice")
		}
	}
	return checkViolations(v)
}

func (s *LeadService) Create(ctx context.Context, actor *policy.Actor, in LeadInput) (*models.Lead, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if err := s.validate(ctx, actor, &in, nil); err != nil {
		return nil, err
	}
	l := models.Lead{
		ClientID:          in.ClientID,
		Status:            in.Status,
		Source:            in.Source,
		AssignedToID:      in.AssignedToID,
		Value:             in.Value,
		ExpectedCloseDate: in.ExpectedCloseDate,
	}
	if err := s.db.WithContext(ctx).Create(&l).Error; err != nil {
		return nil, err
	}
	s.log.Info().Uint("lead_id", l.ID).Uint("client_id", l.ClientID).Str("status", string(l.Status)).Msg("lead created")
	return s.Get(ctx, actor, l.ID)
}

func (s *LeadService) Update(ctx context.Context, actor *policy.Actor, id uint, in LeadInput) (*models.Lead, error) {
	l, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, actor, &in, l); err != nil {
		return nil, err
	}
	from := l.Status
	if err := s.db.WithContext(ctx).Model(l).Updates(in.fields(s.now())).Error; err != nil {
		return nil, err
	}
	if from != in.Status {
		metrics.RecordTransition(string(from), string(in.Status))
	}
	// Read back by id alone: the edit may have moved the lead out of the
	// actor's visible set.
	var updated models.Lead
	if err := s.db.WithContext(ctx).Preload("Client").Preload("AssignedTo").First(&updated, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &updated, nil
}

func (s *LeadService) Delete(ctx context.Context, actor *policy.Actor, id uint) error {
	res := s.db.WithContext(ctx).Scopes(policy.VisibleLeads(actor)).Delete(&models.Lead{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.log.Info().Uint("lead_id", id).Msg("lead deleted")
	return nil
}

// Transition moves a lead to status. Any valid status may follow any other.
// The lead is looked up without visibility so that an existing lead the
// actor may not touch reports ErrForbidden rather than ErrNotFound.
// Only status and updated_at are written.
func (s *LeadService) Transition(ctx context.Context, actor *policy.Actor, id uint, status string) (*models.Lead, error) {
	var l models.Lead
	if err := s.db.WithContext(ctx).Preload("Client").First(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := s.gate.Authorize(ctx, actor, gate.ActionTransition, policy.ResourceLead, &l); err != nil {
		return nil, ErrForbidden
	}
	to := models.LeadStatus(status)
	if !to.Valid() {
		return nil, invalidArgument("unknown status %q", status)
	}

	from, now := l.Status, s.now()
	err := s.db.WithContext(ctx).Model(&l).UpdateColumns(map[string]any{
		"status":     to,
		"updated_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	l.Status, l.UpdatedAt = to, now

	metrics.RecordTransition(string(from), string(to))
	s.log.Info().Uint("lead_id", l.ID).Uint("actor_id", actor.UserID).
		Str("from", string(from)).Str("to", string(to)).Msg("lead transitioned")
	return &l, nil
}
