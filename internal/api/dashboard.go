package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/report"
	"github.com/redeelle/rodrigo-flow-app/internal/store"
)

// dashboardView is everything the manager screen shows for one request.
type dashboardView struct {
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
	LoadedAt time.Time         `json:"loaded_at"`
	MinDate  string            `json:"min_date,omitempty"`
	MaxDate  string            `json:"max_date,omitempty"`
	Report   *analytics.Report `json:"report,omitempty"`
}

// buildDashboard loads the memoised records and builds the report for the
// requested range, clamped to the observed dates when the two overlap. An
// empty bound defaults to the first or last observed date.
func (s *Server) buildDashboard(r *http.Request) (dashboardView, error) {
	snap := s.opts.Cache.Load(r.Context())
	view := dashboardView{Status: snap.Status().String(), LoadedAt: snap.LoadedAt}

	switch snap.Status() {
	case store.StatusFailed:
		view.Error = "Não foi possível carregar os dados. Tente atualizar."
		return view, nil
	case store.StatusEmpty:
		return view, nil
	}

	bounds, _ := analytics.Bounds(snap.Records)
	rng, err := analytics.ParseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"), bounds)
	if err != nil {
		return view, err
	}
	rng = rng.Clamp(bounds)

	rep := analytics.Build(snap.Records, rng, s.opts.Analytics)
	view.MinDate = bounds.Start.Format(analytics.DateLayout)
	view.MaxDate = bounds.End.Format(analytics.DateLayout)
	view.Report = &rep
	return view, nil
}

// dashboard handles GET /api/v1/dashboard.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.buildDashboard(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusOK
	if view.Status == store.StatusFailed.String() {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, view)
}

// refresh handles POST /api/v1/dashboard/refresh.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.opts.Cache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// exportCSV serves the records of the selected range as a CSV download.
// An empty selection still produces a file with the header row.
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	view, err := s.buildDashboard(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if view.Status == store.StatusFailed.String() {
		writeError(w, http.StatusInternalServerError, view.Error)
		return
	}

	today := analytics.Day(time.Now().In(s.opts.Location))
	rng := analytics.NewRange(today, today)
	var rep analytics.Report
	if view.Report != nil {
		rep = *view.Report
		rng = rep.Range
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep.Records); err != nil {
		s.logger.Error("failed to write csv export", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(rng)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
