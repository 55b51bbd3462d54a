package api

import (
	"context"
	"net/http"

	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/internal/domain/types"
)

// CompareDependencies defines the two-driver comparison.
type CompareDependencies interface {
	Compare(ctx context.Context, id model.SessionID, a, b string) (model.ComparisonRecord, error)
}

// CompareHandler handles comparison requests.
type CompareHandler struct {
	deps CompareDependencies
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(deps CompareDependencies) *CompareHandler {
	return &CompareHandler{deps: deps}
}

// HandleCompare handles GET /compare?year=&event=&session=&a=&b= requests.
func (h *CompareHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	id, err := parseSession(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := requiredDriver(r, "a")
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	b, err := requiredDriver(r, "b")
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	rec, err := h.deps.Compare(r.Context(), id, a, b)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewCompare(id, rec))
}
