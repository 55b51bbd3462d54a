// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/perfectlap/internal/adapters/provider"
	"github.com/okian/perfectlap/internal/domain/analyzer"
	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/internal/domain/types"
	"github.com/okian/perfectlap/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LapsDependencies
	CompareDependencies
	SummaryDependencies
	TelemetryDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	lapsHandler      *LapsHandler
	compareHandler   *CompareHandler
	summaryHandler   *SummaryHandler
	telemetryHandler *TelemetryHandler
	logger           logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		lapsHandler:      NewLapsHandler(deps),
		compareHandler:   NewCompareHandler(deps),
		summaryHandler:   NewSummaryHandler(deps),
		telemetryHandler: NewTelemetryHandler(deps),
		logger:           logger.Get().Named("http"),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", s.route(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", s.route(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/fastest", s.route(s.lapsHandler.HandleFastest, "fastest"))
	mux.HandleFunc("/optimal", s.route(s.lapsHandler.HandleOptimal, "optimal"))
	mux.HandleFunc("/best-laps", s.route(s.lapsHandler.HandleBestLaps, "best_laps"))
	mux.HandleFunc("/compare", s.route(s.compareHandler.HandleCompare, "compare"))
	mux.HandleFunc("/summary", s.route(s.summaryHandler.HandleSummary, "summary"))
	mux.HandleFunc("/telemetry", s.route(s.telemetryHandler.HandleTelemetry, "telemetry"))
}

func (s *Server) route(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	return RequestIDMiddleware(MetricsMiddleware(getOnly(h), endpoint), s.logger)
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, r, NewKind("api."+strings.TrimPrefix(r.URL.Path, "/"), ErrMethodNotAllowed))
			return
		}
		next(w, r)
	}
}

// parseSession reads the year, event and session query parameters.
func parseSession(r *http.Request) (model.SessionID, error) {
	q := r.URL.Query()

	rawYear := strings.TrimSpace(q.Get("year"))
	if rawYear == "" {
		return model.SessionID{}, errors.New("missing year")
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil {
		return model.SessionID{}, fmt.Errorf("invalid year %q", rawYear)
	}

	event := strings.TrimSpace(q.Get("event"))
	if event == "" {
		return model.SessionID{}, errors.New("missing event")
	}

	rawType := q.Get("session")
	if strings.TrimSpace(rawType) == "" {
		return model.SessionID{}, errors.New("missing session")
	}
	st, err := model.ParseSessionType(rawType)
	if err != nil {
		return model.SessionID{}, err
	}

	id := model.SessionID{Year: year, Event: event, Type: st}
	if err := id.Validate(); err != nil {
		return model.SessionID{}, err
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status and code matching err.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Get().Named("http").Error(r.Context(), "request failed",
			logger.String("requestID", RequestIDFromContext(r.Context())),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, types.ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// classify maps error kinds to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidSessionID),
		errors.Is(err, model.ErrInvalidSessionType):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, analyzer.ErrDriverNotFound),
		errors.Is(err, provider.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, analyzer.ErrEmptyResult),
		errors.Is(err, analyzer.ErrNoSectorData),
		errors.Is(err, provider.ErrNoTelemetry):
		return http.StatusUnprocessableEntity, "no_data"
	case errors.Is(err, provider.ErrNetwork),
		errors.Is(err, provider.ErrDecode):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
