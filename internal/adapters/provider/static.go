package provider

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/perfectlap/internal/domain/model"
)

// Static serves pre-built lap tables from memory.
type Static struct {
	sessions  map[string]staticSession
	telemetry map[string][]model.TelemetrySample
}

type staticSession struct {
	id   model.SessionID
	laps model.LapSet
}

// NewStatic creates an empty in-memory provider.
func NewStatic() *Static {
	return &Static{
		sessions:  make(map[string]staticSession),
		telemetry: make(map[string][]model.TelemetrySample),
	}
}

// AddSession registers the lap table of a session. The laps are copied.
func (p *Static) AddSession(id model.SessionID, laps model.LapSet) *Static {
	p.sessions[id.Key()] = staticSession{id: id, laps: slices.Clone(laps)}
	return p
}

// AddTelemetry registers the samples of one lap.
func (p *Static) AddTelemetry(id model.SessionID, driver string, lapNumber int, samples []model.TelemetrySample) *Static {
	p.telemetry[telemetryKey(id, driver, lapNumber)] = slices.Clone(samples)
	return p
}

// GetSession implements Provider.
func (p *Static) GetSession(_ context.Context, id model.SessionID) (Session, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	s, ok := p.sessions[id.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return &staticHandle{p: p, s: s}, nil
}

type staticHandle struct {
	p *Static
	s staticSession
}

func (h *staticHandle) ID() model.SessionID { return h.s.id }

func (h *staticHandle) LoadLaps(_ context.Context) (model.LapSet, error) {
	return slices.Clone(h.s.laps), nil
}

func (h *staticHandle) LoadTelemetry(_ context.Context, lap model.Lap) ([]model.TelemetrySample, error) {
	samples, ok := h.p.telemetry[telemetryKey(h.s.id, lap.Driver, lap.LapNumber)]
	if !ok || len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s lap %d", ErrNoTelemetry, model.NormalizeDriver(lap.Driver), lap.LapNumber)
	}
	return slices.Clone(samples), nil
}

func telemetryKey(id model.SessionID, driver string, lapNumber int) string {
	return fmt.Sprintf("%s|%s|%d", id.Key(), model.NormalizeDriver(driver), lapNumber)
}
