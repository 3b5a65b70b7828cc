package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/diewo77/go-crm/gate"
	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/diewo77/go-crm/internal/storage"
	"github.com/diewo77/go-crm/validation"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SignupInput is the self-service registration form.
type SignupInput struct {
	Username        string `json:"username" validate:"required,max=150"`
	FirstName       string `json:"first_name" validate:"required,max=150"`
	LastName        string `json:"last_name" validate:"required,max=150"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// ProfileInput is the profile self-service form.
type ProfileInput struct {
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Phone     string `json:"phone" validate:"max=20"`
	Position  string `json:"position" validate:"max=100"`
	AvatarURL string `json:"avatar" validate:"max=500"`
}

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AccountService manages users, their profiles and authentication.
type AccountService struct {
	db    *gorm.DB
	mail  mail.Sender
	store storage.Store
	gate  *gate.Gate[*policy.Actor]
	log   zerolog.Logger
	now   func() time.Time
}

func NewAccountService(db *gorm.DB, sender mail.Sender, store storage.Store, log zerolog.Logger) *AccountService {
	return &AccountService{db: db, mail: sender, store: store, gate: policy.NewGate(), log: log, now: time.Now}
}

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Register creates a user and its profile and sends the welcome email, all in
// one transaction. A mail failure rolls the account back.
func (s *AccountService) Register(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	v := validation.Struct(in)
	if _, taken := v["username"]; !taken && in.Username != "" {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", in.Username).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			v.Add("username", "already_exists")
		}
	}
	if err := checkViolations(v); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Password:  hash,
		IsActive:  true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fieldError("username", "already_exists")
			}
			return err
		}
		profile := models.Profile{UserID: user.ID}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		user.Profile = &profile

		msg, err := mail.WelcomeMessage(user.Email, user.DisplayName(), user.Username)
		if err != nil {
			return err
		}
		if err := s.mail.Send(ctx, msg); err != nil {
			return upstream("welcome email", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSignup()
	s.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return &user, nil
}

// Authenticate checks credentials. Unknown users, wrong passwords and
// inactive accounts all yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpdateProfile saves the actor's own contact details. An uploaded avatar is
// stored through the storage backend and replaces AvatarURL.
// Only actors passing the role gate may change their position.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *policy.Actor, in ProfileInput, avatar *Upload) (*models.User, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	user, err := s.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	current := user.Profile
	if current == nil {
		current = &models.Profile{UserID: user.ID}
	}

	in.Position = strings.TrimSpace(in.Position)
	v := validation.Struct(in)
	validation.URL("avatar", in.AvatarURL, v)
	if in.Position != current.Position && !actor.IsAdmin() {
		v.Add("position", "not_allowed")
	}
	if avatar != nil && !strings.HasPrefix(avatar.ContentType, "image/") {
		v.Add("avatar", "invalid")
	}
	if err := checkViolations(v); err != nil {
		return nil, err
	}

	if avatar != nil {
		key := storage.ObjectKey("avatars", avatar.Filename)
		url, err := s.store.Save(ctx, key, avatar.Body, avatar.Size, avatar.ContentType)
		if err != nil {
			return nil, upstream("avatar upload", err)
		}
		in.AvatarURL = url
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(map[string]any{
			"first_name": strings.TrimSpace(in.FirstName),
			"last_name":  strings.TrimSpace(in.LastName),
			"email":      strings.TrimSpace(in.Email),
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		current.Phone = in.Phone
		current.Position = in.Position
		current.AvatarURL = in.AvatarURL
		return tx.Save(current).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *AccountService) authorizeAdmin(ctx context.Context, actor *policy.Actor) error {
	if err := s.gate.Authorize(ctx, actor, gate.ActionManage, policy.ResourceUsers, nil); err != nil {
		return ErrForbidden
	}
	return nil
}

// ListUsers returns every user with its profile. Role gated.
func (s *AccountService) ListUsers(ctx context.Context, actor *policy.Actor) ([]models.User, error) {
	if err := s.authorizeAdmin(ctx, actor); err != nil {
		return nil, err
	}
	var users []models.User
	err := s.db.WithContext(ctx).Preload("Profile").Order("username").Find(&users).Error
	return users, err
}

// ActiveUsers lists the users a lead may be assigned to.
func (s *AccountService) ActiveUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("username").Find(&users).Error
	return users, err
}

// SetPosition changes a user's position, and with it the user's role. Role gated.
func (s *AccountService) SetPosition(ctx context.Context, actor *policy.Actor, userID uint, position string) error {
	if err := s.authorizeAdmin(ctx, actor); err != nil {
		return err
	}
	position = strings.TrimSpace(position)
	v := make(validation.Violations)
	validation.MaxLen("position", position, 100, v)
	if err := checkViolations(v); err != nil {
		return err
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	profile := user.Profile
	if profile == nil {
		profile = &models.Profile{UserID: user.ID}
	}
	profile.Position = position
	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return err
	}
	s.log.Info().Uint("actor_id", actor.UserID).Uint("user_id", userID).Str("position", position).Msg("position changed")
	return nil
}

// SetActive enables or disables sign-in for a user. Role gated.
func (s *AccountService) SetActive(ctx context.Context, actor *policy.Actor, userID uint, active bool) error {
	if err := s.authorizeAdmin(ctx, actor); err != nil {
		return err
	}
	if userID == actor.UserID && !active {
		return fieldError("is_active", "not_allowed")
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{"is_active": active, "updated_at": s.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user. The profile and owned clients go with it;
// assigned leads and authored interactions are kept with the reference cleared.
func (s *AccountService) DeleteUser(ctx context.Context, actor *policy.Actor, userID uint) error {
	if err := s.authorizeAdmin(ctx, actor); err != nil {
		return err
	}
	if userID == actor.UserID {
		return fieldError("user", "cannot_delete_self")
	}
	res := s.db.WithContext(ctx).Delete(&models.User{}, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.log.Info().Uint("actor_id", actor.UserID).Uint("user_id", userID).Msg("user deleted")
	return nil
}

// EnsureSuperuser creates the configured privileged user unless the username
// already exists. It reports whether a user was created.
func (s *AccountService) EnsureSuperuser(ctx context.Context, seed config.SeedConfig) (bool, error) {
	if !seed.Enabled() {
		return false, nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", seed.Username).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	hash, err := hashPassword(seed.Password)
	if err != nil {
		return false, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{Username: seed.Username, Email: seed.Email, Password: hash, IsSuperuser: true, IsActive: true}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: user.ID}).Error
	})
	if err != nil {
		return false, err
	}
	s.log.Info().Str("username", seed.Username).Msg("superuser created")
	return true, nil
}
