package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/validation"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// InteractionInput holds the editable interaction fields.
// An empty Type means note; a zero OccurredAt means now.
type InteractionInput struct {
	ClientID     uint                   `json:"client_id" validate:"required"`
	Type         models.InteractionType `json:"interaction_type"`
	Subject      string                 `json:"subject" validate:"max=255"`
	Notes        string                 `json:"notes" validate:"required"`
	OccurredAt   time.Time              `json:"occurred_at"`
	FollowUpDate *time.Time             `json:"follow_up_date"`
}

// InteractionFilter narrows an interaction list. A zero ClientID means all clients.
type InteractionFilter struct {
	ClientID uint
	Page     int
}

type InteractionService struct {
	db   *gorm.DB
	gate *gate.Gate[*policy.Actor]
	log  zerolog.Logger
	now  func() time.Time
}

func NewInteractionService(db *gorm.DB, log zerolog.Logger) *InteractionService {
	return &InteractionService{db: db, gate: policy.NewGate(), log: log, now: time.Now}
}

func (s *InteractionService) visible(ctx context.Context, actor *policy.Actor) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Interaction{}).Scopes(policy.VisibleInteractions(actor))
}

// List returns one page of visible interactions, newest first.
func (s *InteractionService) List(ctx context.Context, actor *policy.Actor, f InteractionFilter) (Page[models.Interaction], error) {
	out := Page[models.Interaction]{Number: normalizePage(f.Page), PageSize: PageSize}
	query := func() *gorm.DB {
		db := s.visible(ctx, actor)
		if f.ClientID != 0 {
			db = db.Where("interactions.client_id = ?", f.ClientID)
		}
		return db
	}
	if err := query().Count(&out.Total).Error; err != nil {
		return out, err
	}
	err := query().Preload("Client").Preload("Author").
		Order("interactions.occurred_at DESC, interactions.id DESC").
		Scopes(paginate(f.Page)).Find(&out.Items).Error
	return out, err
}

func (s *InteractionService) Get(ctx context.Context, actor *policy.Actor, id uint) (*models.Interaction, error) {
	var it models.Interaction
	if err := s.visible(ctx, actor).Preload("Client").Preload("Author").First(&it, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &it, nil
}

func (s *InteractionService) validate(ctx context.Context, actor *policy.Actor, in *InteractionInput, current *models.Interaction) error {
	if in.Type == "" {
		in.Type = models.InteractionNote
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = s.now()
	}
	in.Subject = strings.TrimSpace(in.Subject)

	v := validation.Struct(*in)
	validation.Required("notes", in.Notes, v)
	if !in.Type.Valid() {
		v.Add("interaction_type", "invalid_choice")
	}
	if current != nil && !strings.HasPrefix(in.Notes, current.Notes) {
		v.Add("notes", "append_only")
	}
	if in.ClientID != 0 && (current == nil || in.ClientID != current.ClientID) {
		var n int64
		err := s.db.WithContext(ctx).Model(&models.Client{}).Scopes(policy.VisibleClients(actor)).
			Where("clients.id = ?", in.ClientID).Count(&n).Error
		if err != nil {
			return err
		}
		if n == 0 {
			v.Add("client_id", "invalid_choice")
		}
	}
	return checkViolations(v)
}

// Create records an interaction authored by the actor on one of the actor's clients.
func (s *InteractionService) Create(ctx context.Context, actor *policy.Actor, in InteractionInput) (*models.Interaction, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if err := s.validate(ctx, actor, &in, nil); err != nil {
		return nil, err
	}
	author := actor.UserID
	it := models.Interaction{
		ClientID:     in.ClientID,
		AuthorID:     &author,
		Type:         in.Type,
		Subject:      in.Subject,
		Notes:        in.Notes,
		OccurredAt:   in.OccurredAt,
		FollowUpDate: in.FollowUpDate,
	}
	if err := s.db.WithContext(ctx).Create(&it).Error; err != nil {
		return nil, err
	}
	s.log.Info().Uint("interaction_id", it.ID).Uint("client_id", it.ClientID).Msg("interaction recorded")
	return s.Get(ctx, actor, it.ID)
}

// Update edits a visible interaction. Notes may only grow: the new text must
// start with the stored text.
func (s *InteractionService) Update(ctx context.Context, actor *policy.Actor, id uint, in InteractionInput) (*models.Interaction, error) {
	it, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, actor, &in, it); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(it).Updates(map[string]any{
		"client_id":        in.ClientID,
		"interaction_type": in.Type,
		"subject":          in.Subject,
		"notes":            in.Notes,
		"occurred_at":      in.OccurredAt,
		"follow_up_date":   in.FollowUpDate,
		"updated_at":       s.now(),
	}).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *InteractionService) Delete(ctx context.Context, actor *policy.Actor, id uint) error {
	res := s.db.WithContext(ctx).Scopes(policy.VisibleInteractions(actor)).Delete(&models.Interaction{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete closes the follow-up of an interaction the actor wrote: the
// follow-up date is cleared and a completion line is appended to the notes.
// Anything else (unknown id, another author) is a silent no-op reported as
// a nil interaction. Only follow_up_date, notes and updated_at are written.
func (s *InteractionService) Complete(ctx context.Context, actor *policy.Actor, id uint) (*models.Interaction, error) {
	if actor == nil {
		return nil, nil
	}
	var it models.Interaction
	err := s.db.WithContext(ctx).Where("id = ? AND author_id = ?", id, actor.UserID).First(&it).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !s.gate.Can(ctx, actor, gate.ActionComplete, policy.ResourceInteraction, &it) {
		return nil, nil
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Interaction{}).
		Where("id = ? AND author_id = ?", id, actor.UserID).
		UpdateColumns(map[string]any{
			"follow_up_date": nil,
			"notes":          gorm.Expr("notes || ?", models.CompletionNote(now)),
			"updated_at":     now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	metrics.RecordCompletion()
	s.log.Info().Uint("interaction_id", id).Uint("actor_id", actor.UserID).Msg("follow-up completed")
	var done models.Interaction
	if err := s.db.WithContext(ctx).First(&done, id).Error; err != nil {
		return nil, err
	}
	return &done, nil
}
