package provider

import "errors"

// Sentinel kinds for session-data provider errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNetwork         = errors.New("session data unavailable")
	ErrDecode          = errors.New("malformed session data")
	ErrNoTelemetry     = errors.New("no telemetry for lap")
)
