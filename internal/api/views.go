package api

import (
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/shopspring/decimal"
)

// userView is how another user appears inside a record: identity only,
// no flags and no profile.
type userView struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func newUserView(u *models.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// adminUserView is the /users listing, served to the role gate only.
type adminUserView struct {
	userView
	IsSuperuser bool   `json:"is_superuser"`
	IsActive    bool   `json:"is_active"`
	Position    string `json:"position"`
	Phone       string `json:"phone"`
}

func newAdminUserView(u *models.User) adminUserView {
	v := adminUserView{userView: *newUserView(u), IsSuperuser: u.IsSuperuser, IsActive: u.IsActive}
	if u.Profile != nil {
		v.Position, v.Phone = u.Profile.Position, u.Profile.Phone
	}
	return v
}

type clientView struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Website   string    `json:"website"`
	Industry  string    `json:"industry"`
	Notes     string    `json:"notes"`
	OwnerID   uint      `json:"owner_id"`
	Owner     *userView `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newClientView(c *models.Client) *clientView {
	if c == nil {
		return nil
	}
	return &clientView{
		ID:        c.ID,
		Name:      c.Name,
		Company:   c.Company,
		Email:     c.Email,
		Phone:     c.Phone,
		Website:   c.Website,
		Industry:  c.Industry,
		Notes:     c.Notes,
		OwnerID:   c.OwnerID,
		Owner:     newUserView(c.Owner),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type leadView struct {
	ID                uint              `json:"id"`
	ClientID          uint              `json:"client_id"`
	Client            *clientView       `json:"client,omitempty"`
	Status            models.LeadStatus `json:"status"`
	Source            string            `json:"source"`
	AssignedToID      *uint             `json:"assigned_to_id"`
	AssignedTo        *userView         `json:"assigned_to,omitempty"`
	Value             decimal.Decimal   `json:"value"`
	ExpectedCloseDate *string           `json:"expected_close_date"`
	InteractionCount  int64             `json:"interaction_count"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func newLeadView(l *models.Lead) *leadView {
	return &leadView{
		ID:                l.ID,
		ClientID:          l.ClientID,
		Client:            newClientView(l.Client),
		Status:            l.Status,
		Source:            l.Source,
		AssignedToID:      l.AssignedToID,
		AssignedTo:        newUserView(l.AssignedTo),
		Value:             l.Value,
		ExpectedCloseDate: formatDate(l.ExpectedCloseDate),
		InteractionCount:  l.InteractionCount,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

type interactionView struct {
	ID           uint                   `json:"id"`
	ClientID     uint                   `json:"client_id"`
	Client       *clientView            `json:"client,omitempty"`
	AuthorID     *uint                  `json:"author_id"`
	Author       *userView              `json:"author,omitempty"`
	Type         models.InteractionType `json:"interaction_type"`
	Subject      string                 `json:"subject"`
	Notes        string                 `json:"notes"`
	OccurredAt   time.Time              `json:"occurred_at"`
	FollowUpDate *string                `json:"follow_up_date"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func newInteractionView(it *models.Interaction) *interactionView {
	return &interactionView{
		ID:           it.ID,
		ClientID:     it.ClientID,
		Client:       newClientView(it.Client),
		AuthorID:     it.AuthorID,
		Author:       newUserView(it.Author),
		Type:         it.Type,
		Subject:      it.Subject,
		Notes:        it.Notes,
		OccurredAt:   it.OccurredAt,
		FollowUpDate: formatDate(it.FollowUpDate),
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

type dashboardView struct {
	Pipeline           []services.StatusBucket  `json:"pipeline"`
	ConversionRate     float64                  `json:"conversion_rate"`
	SalesByUser        []services.AssigneeSales `json:"sales_by_user"`
	RecentInteractions []*interactionView       `json:"recent_interactions"`
	ClientsTotal       int64                    `json:"clients_total"`
	LeadsTotal         int64                    `json:"leads_total"`
	InteractionsTotal  int64                    `json:"interactions_total"`
	GeneratedAt        time.Time                `json:"generated_at"`
}

func newDashboardView(d *services.Dashboard) dashboardView {
	recent := make([]*interactionView, 0, len(d.RecentInteractions))
	for i := range d.RecentInteractions {
		recent = append(recent, newInteractionView(&d.RecentInteractions[i]))
	}
	return dashboardView{
		Pipeline:           d.Pipeline,
		ConversionRate:     d.ConversionRate,
		SalesByUser:        d.SalesByUser,
		RecentInteractions: recent,
		ClientsTotal:       d.ClientsTotal,
		LeadsTotal:         d.LeadsTotal,
		InteractionsTotal:  d.InteractionsTotal,
		GeneratedAt:        d.GeneratedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
