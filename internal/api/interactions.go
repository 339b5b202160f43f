package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redeelle/rodrigo-flow-app/internal/archetype"
	"github.com/redeelle/rodrigo-flow-app/internal/classifier"
	"github.com/redeelle/rodrigo-flow-app/internal/coach"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/draft"
)

type analyzeRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type confirmRequest struct {
	Applied string `json:"applied"`
}

// draftResponse flattens a draft for API clients.
type draftResponse struct {
	*draft.Draft
	Missing []string `json:"missing"`
}

func newDraftResponse(d *draft.Draft) draftResponse {
	missing := d.Result.MissingNames()
	if missing == nil {
		missing = []string{}
	}
	return draftResponse{Draft: d, Missing: missing}
}

func (s *Server) listArchetypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ideal":      archetype.Ideal,
		"archetypes": archetype.All(),
	})
}

// analyze handles POST /api/v1/interactions/analyze.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	d, err := s.opts.Coach.Analyze(r.Context(), req.Name, req.Text)
	if err != nil {
		status, msg := classifyError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, newDraftResponse(d))
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.opts.Coach.Draft(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newDraftResponse(d))
}

// confirm handles POST /api/v1/drafts/{id}/confirm.
func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	applied, ok := domain.ParseApplied(req.Applied)
	if !ok {
		writeError(w, http.StatusBadRequest, coach.ErrInvalidApplied.Error())
		return
	}

	in, err := s.opts.Coach.Confirm(r.Context(), chi.URLParam(r, "id"), applied)
	if err != nil {
		status, msg := confirmError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) discard(w http.ResponseWriter, r *http.Request) {
	s.opts.Coach.Discard(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// classifyError maps an Analyze error to a status and a message safe to show.
func classifyError(err error) (int, string) {
	if errors.Is(err, classifier.ErrEmptyInput) {
		return http.StatusBadRequest, "Por favor, descreva a situação antes de analisar."
	}
	return http.StatusBadGateway, "Não foi possível obter a análise agora. Tente novamente."
}

// confirmError maps a Confirm error to a status and a message safe to show.
func confirmError(err error) (int, string) {
	switch {
	case errors.Is(err, draft.ErrNotFound):
		return http.StatusNotFound, "Esta análise expirou ou já foi registrada."
	case errors.Is(err, coach.ErrInvalidApplied):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Não foi possível salvar a interação. Tente novamente."
	}
}
