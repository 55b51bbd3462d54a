package api

import (
	"context"
	"net/http"

	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/internal/domain/types"
)

// TelemetryDependencies defines the racing-line lookup.
type TelemetryDependencies interface {
	Telemetry(ctx context.Context, id model.SessionID, driver string) (model.Lap, []model.TelemetrySample, error)
}

// TelemetryHandler handles telemetry requests.
type TelemetryHandler struct {
	deps TelemetryDependencies
}

// NewTelemetryHandler creates a new telemetry handler.
func NewTelemetryHandler(deps TelemetryDependencies) *TelemetryHandler {
	return &TelemetryHandler{deps: deps}
}

// HandleTelemetry handles GET /telemetry?year=&event=&session=&driver= requests.
// It returns the samples along the fastest lap of the driver, or of the
// whole field without one.
func (h *TelemetryHandler) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	const op = "api.telemetry"
	id, err := parseSession(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	lap, samples, err := h.deps.Telemetry(r.Context(), id, r.URL.Query().Get("driver"))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewTelemetry(id, lap, samples))
}
