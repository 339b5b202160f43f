package api

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/archetype"
	"github.com/redeelle/rodrigo-flow-app/internal/classifier"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/draft"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	submit    *template.Template
	dashboard *template.Template
}

var funcs = template.FuncMap{
	// bar scales n against max to a CSS width percentage.
	"bar": func(n, max int) int {
		if max <= 0 {
			return 0
		}
		return n * 100 / max
	},
	"maxCount": func(counts []analytics.Count) int {
		m := 0
		for _, c := range counts {
			if c.Count > m {
				m = c.Count
			}
		}
		return m
	},
	"maxAlert": func(rows []analytics.AlertRow) int {
		m := 0
		for _, r := range rows {
			if r.Total > m {
				m = r.Total
			}
		}
		return m
	},
	"pct": func(f float64) string {
		return fmt.Sprintf("%.2f%%", f)
	},
	"datetime": func(t time.Time) string {
		return t.Format(domain.TimeLayout)
	},
	"ideal": func() string { return archetype.Ideal },
}

func loadPages() *pages {
	parse := func(page string) *template.Template {
		return template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+page))
	}
	return &pages{
		submit:    parse("submit.html"),
		dashboard: parse("dashboard.html"),
	}
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, status int, data any) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		s.logger.Error("failed to render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, sb.String())
}

type submitData struct {
	Flash      string
	Warning    string
	Error      string
	Name       string
	Text       string
	Draft      *draft.Draft
	Archetypes []archetype.Archetype
}

func (s *Server) submitPage(w http.ResponseWriter, status int, data submitData) {
	data.Archetypes = archetype.All()
	s.render(w, s.pages.submit, status, data)
}

// submitForm handles GET /.
func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	data := submitData{Name: r.URL.Query().Get("name")}
	if r.URL.Query().Get("saved") == "1" {
		data.Flash = "Interação registrada. Bora para a próxima batalha!"
	}
	s.submitPage(w, http.StatusOK, data)
}

// submitAnalyze handles POST /analyze.
func (s *Server) submitAnalyze(w http.ResponseWriter, r *http.Request) {
	name, text := r.FormValue("name"), r.FormValue("text")

	d, err := s.opts.Coach.Analyze(r.Context(), name, text)
	if err != nil {
		status, msg := classifyError(err)
		data := submitData{Name: name, Text: text}
		if errors.Is(err, classifier.ErrEmptyInput) {
			data.Warning = msg
		} else {
			data.Error = msg
		}
		s.submitPage(w, status, data)
		return
	}
	s.submitPage(w, http.StatusOK, submitData{Name: name, Text: text, Draft: d})
}

// submitConfirm handles POST /confirm.
func (s *Server) submitConfirm(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("draft_id")
	applied, ok := domain.ParseApplied(r.FormValue("applied"))
	if !ok {
		d, _ := s.opts.Coach.Draft(id)
		s.submitPage(w, http.StatusBadRequest, submitData{Draft: d, Warning: "Escolha Sim ou Não."})
		return
	}

	in, err := s.opts.Coach.Confirm(r.Context(), id, applied)
	if err != nil {
		status, msg := confirmError(err)
		data := submitData{Error: msg}
		// A failed write restores the draft so the submitter can retry.
		if d, derr := s.opts.Coach.Draft(id); derr == nil {
			data.Draft, data.Name, data.Text = d, d.SubmitterName, d.InputText
		}
		s.submitPage(w, status, data)
		return
	}

	q := url.Values{"saved": {"1"}}
	if in.Named() {
		q.Set("name", in.SubmitterName)
	}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

// submitDiscard handles POST /discard.
func (s *Server) submitDiscard(w http.ResponseWriter, r *http.Request) {
	s.opts.Coach.Discard(r.FormValue("draft_id"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type dashboardData struct {
	dashboardView
	Start         string
	End           string
	Flash         string
	NotifyEnabled bool
}

// dashboardPage handles GET /dashboard.
func (s *Server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.buildDashboard(r)
	status := http.StatusOK
	data := dashboardData{dashboardView: view, NotifyEnabled: s.opts.Notifier != nil}
	if err != nil {
		status = http.StatusBadRequest
		data.Error = err.Error()
	}
	if view.Report != nil {
		data.Start, data.End = view.Report.Start, view.Report.End
	}
	switch r.URL.Query().Get("notified") {
	case "1":
		data.Flash = "Resumo de alertas enviado."
	case "0":
		data.Error = "Não foi possível enviar o resumo de alertas."
	}
	if view.Error != "" {
		status = http.StatusInternalServerError
	}
	s.render(w, s.pages.dashboard, status, data)
}

// dashboardRefresh handles POST /dashboard/refresh.
func (s *Server) dashboardRefresh(w http.ResponseWriter, r *http.Request) {
	s.opts.Cache.Invalidate()
	http.Redirect(w, r, dashboardURL(r, nil), http.StatusSeeOther)
}

// dashboardNotify handles POST /dashboard/notify.
func (s *Server) dashboardNotify(w http.ResponseWriter, r *http.Request) {
	if s.opts.Notifier == nil {
		http.Error(w, "notifications are not configured", http.StatusNotFound)
		return
	}
	view, err := s.buildDashboard(r)
	if err != nil || view.Report == nil {
		http.Redirect(w, r, dashboardURL(r, url.Values{"notified": {"0"}}), http.StatusSeeOther)
		return
	}

	notified := "1"
	if _, err := s.opts.Notifier.PostAlertDigest(r.Context(), *view.Report); err != nil {
		s.logger.Error("failed to post alert digest", "error", err)
		notified = "0"
	}
	http.Redirect(w, r, dashboardURL(r, url.Values{"notified": {notified}}), http.StatusSeeOther)
}

// dashboardURL keeps the selected range across POST-redirect-GET.
func dashboardURL(r *http.Request, extra url.Values) string {
	q := url.Values{}
	for _, k := range []string{"start", "end"} {
		if v := r.FormValue(k); v != "" {
			q.Set(k, v)
		}
	}
	for k, v := range extra {
		q[k] = v
	}
	if len(q) == 0 {
		return "/dashboard"
	}
	return "/dashboard?" + q.Encode()
}
