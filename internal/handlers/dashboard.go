package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/internal/services"
	"github.com/rs/zerolog"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
	log       zerolog.Logger
}

func NewDashboardHandler(dashboard *services.DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, log: log}
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Build(r.Context(), actorOf(r))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	render(w, r, h.log, http.StatusOK, "dashboard.html", map[string]any{"Dashboard": d})
}
