package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/internal/domain/types"
)

// LapsDependencies defines the single-lap and ranking operations.
type LapsDependencies interface {
	FastestLap(ctx context.Context, id model.SessionID, driver string) (model.Lap, error)
	OptimalLap(ctx context.Context, id model.SessionID, driver string) (model.OptimalLap, error)
	BestLaps(ctx context.Context, id model.SessionID) ([]model.BestLap, error)
}

// LapsHandler handles /fastest, /optimal and /best-laps.
type LapsHandler struct {
	deps LapsDependencies
}

// NewLapsHandler creates a new laps handler.
func NewLapsHandler(deps LapsDependencies) *LapsHandler {
	return &LapsHandler{deps: deps}
}

// HandleFastest handles GET /fastest?year=&event=&session=&driver= requests.
// Without a driver the whole field is considered.
func (h *LapsHandler) HandleFastest(w http.ResponseWriter, r *http.Request) {
	const op = "api.fastest"
	id, err := parseSession(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	driver := model.NormalizeDriver(r.URL.Query().Get("driver"))

	lap, err := h.deps.FastestLap(r.Context(), id, driver)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FastestResponse{
		Session: types.NewSession(id),
		Driver:  driver,
		Lap:     types.NewLap(lap),
	})
}

// HandleOptimal handles GET /optimal?year=&event=&session=&driver= requests.
func (h *LapsHandler) HandleOptimal(w http.ResponseWriter, r *http.Request) {
	const op = "api.optimal"
	id, err := parseSession(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	driver := model.NormalizeDriver(r.URL.Query().Get("driver"))

	opt, err := h.deps.OptimalLap(r.Context(), id, driver)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.OptimalResponse{
		Session: types.NewSession(id),
		Driver:  driver,
		Optimal: types.NewOptimal(opt),
	})
}

// HandleBestLaps handles GET /best-laps?year=&event=&session= requests.
func (h *LapsHandler) HandleBestLaps(w http.ResponseWriter, r *http.Request) {
	const op = "api.best_laps"
	id, err := parseSession(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	ranking, err := h.deps.BestLaps(r.Context(), id)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewBestLaps(id, ranking))
}

// requiredDriver reads a mandatory driver code parameter.
func requiredDriver(r *http.Request, name string) (string, error) {
	code := model.NormalizeDriver(r.URL.Query().Get(name))
	switch {
	case code == "":
		return "", fmt.Errorf("missing %s", name)
	case strings.ContainsAny(code, " /"):
		return "", fmt.Errorf("invalid %s %q", name, code)
	}
	return code, nil
}
