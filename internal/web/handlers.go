package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hpungsan/dwell/internal/app"
	"github.com/hpungsan/dwell/internal/ops"
	"github.com/hpungsan/dwell/internal/site"
)

// dashboardSites is how many domains the dashboard report lists.
const dashboardSites = 25

// Handlers contains HTTP route handlers for the extension ingress and dashboard.
type Handlers struct {
	svc      *app.Services
	renderer *Renderer
	log      *slog.Logger
}

// HandleDashboard handles GET /: the day report plus the live session.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.svc.Clock.Now()

	report, err := ops.Report(ctx, h.svc.Store, ops.ReportInput{
		Date:  r.URL.Query().Get("date"),
		Limit: parseIntParam(r, "limit", dashboardSites),
	}, now)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	stats, err := h.svc.Engine.SessionStats(ctx)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "dashboard", DashboardPageData{
		PageData: PageData{
			Title:   "Activity for " + report.Date,
			Version: h.renderer.version,
		},
		Report:     report,
		ReportHTML: renderMarkdown(report.Markdown),
		Stats:      stats,
		Current:    h.svc.Engine.CurrentSession(),
		IsToday:    report.Date == site.DayKey(now),
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
