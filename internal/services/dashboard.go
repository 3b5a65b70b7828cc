package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/policy"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatusBucket is the pipeline breakdown for one status.
type StatusBucket struct {
	Status models.LeadStatus `json:"status"`
	Count  int64             `json:"count"`
	Value  decimal.Decimal   `json:"value"`
}

// AssigneeSales is the won value attributed to one assignee.
// Unassigned groups won leads without an assignee.
type AssigneeSales struct {
	UserID     *uint           `json:"user_id"`
	Username   string          `json:"username"`
	Unassigned bool            `json:"unassigned"`
	Total      decimal.Decimal `json:"total"`
}

// Dashboard aggregates the leads, clients and interactions visible to one actor.
type Dashboard struct {
	Pipeline           []StatusBucket       `json:"pipeline"`
	ConversionRate     float64              `json:"conversion_rate"`
	SalesByUser        []AssigneeSales      `json:"sales_by_user"`
	RecentInteractions []models.Interaction `json:"recent_interactions"`
	ClientsTotal       int64                `json:"clients_total"`
	LeadsTotal         int64                `json:"leads_total"`
	InteractionsTotal  int64                `json:"interactions_total"`
	GeneratedAt        time.Time            `json:"generated_at"`
}

const recentInteractions = 10

type DashboardService struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

func NewDashboardService(db *gorm.DB, log zerolog.Logger) *DashboardService {
	return &DashboardService{db: db, log: log, now: time.Now}
}

// ConversionRate is won/max(total,1) as a percentage rounded to two decimals.
func ConversionRate(won, total int64) float64 {
	if total < 1 {
		total = 1
	}
	return math.Round(float64(won)/float64(total)*100*100) / 100
}

// Build computes every dashboard figure over the actor's visible sets.
func (s *DashboardService) Build(ctx context.Context, actor *policy.Actor) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{GeneratedAt: s.now()}

	pipeline, err := s.pipeline(db, actor)
	if err != nil {
		return nil, err
	}
	d.Pipeline = pipeline

	var won int64
	for _, b := range pipeline {
		d.LeadsTotal += b.Count
		if b.Status == models.LeadStatusWon {
			won = b.Count
		}
	}
	d.ConversionRate = ConversionRate(won, d.LeadsTotal)

	if d.SalesByUser, err = s.salesByUser(db, actor); err != nil {
		return nil, err
	}

	err = db.Model(&models.Interaction{}).Scopes(policy.VisibleInteractions(actor)).
		Preload("Client").Preload("Author").
		Order("interactions.occurred_at DESC, interactions.id DESC").
		Limit(recentInteractions).Find(&d.RecentInteractions).Error
	if err != nil {
		return nil, err
	}

	if err := db.Model(&models.Client{}).Scopes(policy.VisibleClients(actor)).Count(&d.ClientsTotal).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Interaction{}).Scopes(policy.VisibleInteractions(actor)).Count(&d.InteractionsTotal).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DashboardService) pipeline(db *gorm.DB, actor *policy.Actor) ([]StatusBucket, error) {
	var rows []struct {
		Status models.LeadStatus
		Count  int64
		Amount decimal.Decimal
	}
	err := db.Model(&models.Lead{}).Scopes(policy.VisibleLeads(actor)).
		Select("leads.status AS status, COUNT(*) AS count, COALESCE(SUM(leads.value), 0) AS amount").
		Group("leads.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byStatus := make(map[models.LeadStatus]StatusBucket, len(rows))
	for _, r := range rows {
		byStatus[r.Status] = StatusBucket{Status: r.Status, Count: r.Count, Value: r.Amount.Round(2)}
	}
	out := make([]StatusBucket, 0, len(byStatus))
	for _, st := range models.LeadStatuses() {
		b, ok := byStatus[st]
		if !ok {
			b = StatusBucket{Status: st, Value: decimal.Zero}
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *DashboardService) salesByUser(db *gorm.DB, actor *policy.Actor) ([]AssigneeSales, error) {
	var rows []struct {
		UserID   *uint
		Username *string
		Total    decimal.Decimal
	}
	err := db.Model(&models.Lead{}).Scopes(policy.VisibleLeads(actor)).
		Joins("LEFT JOIN users ON users.id = leads.assigned_to_id").
		Where("leads.status = ?", models.LeadStatusWon).
		Select("leads.assigned_to_id AS user_id, users.username AS username, COALESCE(SUM(leads.value), 0) AS total").
		Group("leads.assigned_to_id, users.username").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]AssigneeSales, 0, len(rows))
	for _, r := range rows {
		a := AssigneeSales{UserID: r.UserID, Total: r.Total.Round(2), Unassigned: r.UserID == nil}
		if r.Username != nil {
			a.Username = *r.Username
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Unassigned != out[j].Unassigned {
			return !out[i].Unassigned
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}
