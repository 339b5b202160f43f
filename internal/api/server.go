package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/coach"
	"github.com/redeelle/rodrigo-flow-app/internal/store"
)

// Notifier posts the manager alert digest somewhere outside the dashboard.
type Notifier interface {
	PostAlertDigest(ctx context.Context, rep analytics.Report) (string, error)
}

// Options wires the server. Notifier may be nil, which hides the notify action.
type Options struct {
	Port         int
	ManagerToken string
	Coach        *coach.Service
	Cache        *store.Cache
	Notifier     Notifier
	Analytics    analytics.Options
	Location     *time.Location
	Model        string
	Store        string
	Logger       *slog.Logger
}

type Server struct {
	router *chi.Mux
	http   *http.Server
	opts   Options
	pages  *pages
	logger *slog.Logger
}

func NewServer(opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		opts:   opts,
		pages:  loadPages(),
		logger: opts.Logger,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/status", s.status)

	// Submitter screen.
	router.Get("/", s.submitForm)
	router.Post("/analyze", s.submitAnalyze)
	router.Post("/confirm", s.submitConfirm)
	router.Post("/discard", s.submitDiscard)

	// Manager screen.
	router.Route("/dashboard", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(opts.ManagerToken))
		r.Get("/", s.dashboardPage)
		r.Post("/refresh", s.dashboardRefresh)
		r.Get("/export.csv", s.exportCSV)
		r.Post("/notify", s.dashboardNotify)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/archetypes", s.listArchetypes)
		r.Post("/interactions/analyze", s.analyze)
		r.Get("/drafts/{id}", s.getDraft)
		r.Post("/drafts/{id}/confirm", s.confirm)
		r.Delete("/drafts/{id}", s.discard)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(opts.ManagerToken))
			r.Get("/dashboard", s.dashboard)
			r.Post("/dashboard/refresh", s.refresh)
			r.Get("/dashboard/export", s.exportCSV)
		})
	})

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":          "rodrigoflow",
		"model":          s.opts.Model,
		"store":          s.opts.Store,
		"pending_drafts": s.opts.Coach.PendingDrafts(),
		"notify_enabled": s.opts.Notifier != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
