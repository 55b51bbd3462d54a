// Package provider defines the session-data provider contract and its
// implementations. A provider resolves a session identifier to a handle from
// which the lap table and per-lap telemetry are loaded.
package provider

import (
	"context"

	"github.com/okian/perfectlap/internal/domain/model"
)

// Provider resolves sessions.
type Provider interface {
	// GetSession resolves id. It fails with ErrSessionNotFound when the event
	// or session does not exist and with ErrNetwork on transport failures.
	GetSession(ctx context.Context, id model.SessionID) (Session, error)
}

// Session is a handle to one resolved session.
type Session interface {
	ID() model.SessionID

	// LoadLaps returns the session's lap table. It is idempotent; repeated
	// calls return the same data without refetching.
	LoadLaps(ctx context.Context) (model.LapSet, error)

	// LoadTelemetry returns position and speed samples along one lap.
	LoadTelemetry(ctx context.Context, lap model.Lap) ([]model.TelemetrySample, error)
}
