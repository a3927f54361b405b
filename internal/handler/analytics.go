package handler

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-billing/internal/domain/analytics"
)

//go:embed templates/dashboard.html
var dashboardHTML string

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"when":  formatTime,
}).Parse(dashboardHTML))

// RevenueSeries returns daily revenue for charting as {labels, data}.
func (h *Handler) RevenueSeries(w http.ResponseWriter, r *http.Request) {
	s, err := h.analytics.RevenueSeries(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "revenue series"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSeries(e, *s) })
}

// DashboardJSON returns the dashboard metrics for the optional
// start_date/end_date filter.
func (h *Handler) DashboardJSON(w http.ResponseWriter, r *http.Request) {
	d, err := h.analytics.Dashboard(r.Context(), dashboardQuery(r))
	if err != nil {
		fail(w, r, errors.Wrap(err, "dashboard"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeDashboard(e, *d) })
}

// Dashboard renders the HTML dashboard page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := dashboardQuery(r)
	d, err := h.analytics.Dashboard(r.Context(), q)
	if err != nil {
		fail(w, r, errors.Wrap(err, "dashboard"))
		return
	}

	var buf bytes.Buffer
	if err := h.dashboard.Execute(&buf, dashboardView{
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Dashboard: d,
	}); err != nil {
		fail(w, r, errors.Wrap(err, "render dashboard"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type dashboardView struct {
	StartDate string
	EndDate   string
	*analytics.Dashboard
}

func dashboardQuery(r *http.Request) analytics.DashboardQuery {
	q := r.URL.Query()
	return analytics.DashboardQuery{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
}
