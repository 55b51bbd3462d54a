package api

import (
	"context"
	"net/http"

	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/internal/domain/types"
)

// SummaryDependencies defines the actual-versus-optimal summary.
type SummaryDependencies interface {
	Summary(ctx context.Context, id model.SessionID, driver string) (model.LapSummary, error)
}

// SummaryHandler handles summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleSummary handles GET /summary?year=&event=&session=&driver= requests.
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	id, err := parseSession(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	sum, err := h.deps.Summary(r.Context(), id, r.URL.Query().Get("driver"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewSummary(id, sum))
}
