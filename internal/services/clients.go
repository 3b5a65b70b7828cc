package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/validation"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ClientInput holds the editable client fields.
type ClientInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Company  string `json:"company" validate:"max=255"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone" validate:"max=40"`
	Website  string `json:"website" validate:"max=500"`
	Industry string `json:"industry" validate:"max=120"`
	Notes    string `json:"notes"`
}

func (in *ClientInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Website = strings.TrimSpace(in.Website)
}

func (in ClientInput) fields(now time.Time) map[string]any {
	return map[string]any{
		"name":       in.Name,
		"company":    in.Company,
		"email":      in.Email,
		"phone":      in.Phone,
		"website":    in.Website,
		"industry":   in.Industry,
		"notes":      in.Notes,
		"updated_at": now,
	}
}

// ClientDetail is a client with its leads and interaction log.
type ClientDetail struct {
	Client       models.Client
	Leads        []models.Lead
	Interactions []models.Interaction
}

type ClientService struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

func NewClientService(db *gorm.DB, log zerolog.Logger) *ClientService {
	return &ClientService{db: db, log: log, now: time.Now}
}

func (s *ClientService) visible(ctx context.Context, actor *policy.Actor) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Client{}).Scopes(policy.VisibleClients(actor))
}

// List returns one page of visible clients ordered by name.
// q filters on name, company, email and phone, ignoring case.
func (s *ClientService) List(ctx context.Context, actor *policy.Actor, q string, page int) (Page[models.Client], error) {
	out := Page[models.Client]{Number: normalizePage(page), PageSize: PageSize}
	query := func() *gorm.DB {
		db := s.visible(ctx, actor)
		if q = strings.TrimSpace(q); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			db = db.Where(
				"(LOWER(clients.name) LIKE ? OR LOWER(clients.company) LIKE ? OR LOWER(clients.email) LIKE ? OR LOWER(clients.phone) LIKE ?)",
				like, like, like, like,
			)
		}
		return db
	}
	if err := query().Count(&out.Total).Error; err != nil {
		return out, err
	}
	err := query().Preload("Owner").Order("clients.name").Scopes(paginate(page)).Find(&out.Items).Error
	return out, err
}

// Options lists the clients the actor may attach leads and interactions to.
func (s *ClientService) Options(ctx context.Context, actor *policy.Actor) ([]models.Client, error) {
	var clients []models.Client
	err := s.visible(ctx, actor).Order("clients.name").Find(&clients).Error
	return clients, err
}

func (s *ClientService) Get(ctx context.Context, actor *policy.Actor, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.visible(ctx, actor).Preload("Owner").First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Detail loads a visible client with its leads (latest first) and interactions (newest first).
func (s *ClientService) Detail(ctx context.Context, actor *policy.Actor, id uint) (*ClientDetail, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	d := &ClientDetail{Client: *c}
	db := s.db.WithContext(ctx)
	if err := db.Preload("AssignedTo").Where("client_id = ?", c.ID).
		Order("updated_at DESC, id DESC").Find(&d.Leads).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Author").Where("client_id = ?", c.ID).
		Order("occurred_at DESC, id DESC").Find(&d.Interactions).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (s *ClientService) validate(ctx context.Context, in ClientInput, ownerID, exceptID uint) error {
	v := validation.Struct(in)
	validation.Required("name", in.Name, v)
	validation.URL("website", in.Website, v)
	if _, bad := v["name"]; !bad {
		var n int64
		err := s.db.WithContext(ctx).Model(&models.Client{}).
			Where("name = ? AND owner_id = ? AND id <> ?", in.Name, ownerID, exceptID).
			Count(&n).Error
		if err != nil {
			return err
		}
		if n > 0 {
			v.Add("name", "already_exists")
		}
	}
	return checkViolations(v)
}

// Create adds a client owned by the actor.
func (s *ClientService) Create(ctx context.Context, actor *policy.Actor, in ClientInput) (*models.Client, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	in.normalize()
	if err := s.validate(ctx, in, actor.UserID, 0); err != nil {
		return nil, err
	}
	c := models.Client{
		Name:     in.Name,
		Company:  in.Company,
		Email:    in.Email,
		Phone:    in.Phone,
		Website:  in.Website,
		Industry: in.Industry,
		Notes:    in.Notes,
		OwnerID:  actor.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fieldError("name", "already_exists")
		}
		return nil, err
	}
	s.log.Info().Uint("client_id", c.ID).Uint("owner_id", c.OwnerID).Msg("client created")
	return &c, nil
}

func (s *ClientService) Update(ctx context.Context, actor *policy.Actor, id uint, in ClientInput) (*models.Client, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := s.validate(ctx, in, c.OwnerID, c.ID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(c).Updates(in.fields(s.now())).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fieldError("name", "already_exists")
		}
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete removes a visible client together with its leads and interactions.
func (s *ClientService) Delete(ctx context.Context, actor *policy.Actor, id uint) error {
	res := s.db.WithContext(ctx).Scopes(policy.VisibleClients(actor)).Delete(&models.Client{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.log.Info().Uint("client_id", id).Msg("client deleted")
	return nil
}
