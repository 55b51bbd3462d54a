// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for model validation errors.
var (
	ErrInvalidSessionType = errors.New("invalid session type")
	ErrInvalidSessionID   = errors.New("invalid session id")
)

// minYear is the first season of the world championship.
const minYear = 1950

// SessionType identifies one timed on-track segment of an event.
type SessionType string

// Supported session types.
const (
	Practice1  SessionType = "FP1"
	Practice2  SessionType = "FP2"
	Practice3  SessionType = "FP3"
	Qualifying SessionType = "Q"
	Race       SessionType = "R"
)

// SessionTypes lists every supported session type in weekend order.
func SessionTypes() []SessionType {
	return []SessionType{Practice1, Practice2, Practice3, Qualifying, Race}
}

// ParseSessionType parses s case-insensitively.
func ParseSessionType(s string) (SessionType, error) {
	v := SessionType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range SessionTypes() {
		if v == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSessionType, s)
}

// SessionID names a session by season, event and session type,
// e.g. {2024, "Monaco Grand Prix", Q}.
type SessionID struct {
	Year  int
	Event string
	Type  SessionType
}

// Validate reports whether the identifier can be resolved at all.
func (id SessionID) Validate() error {
	switch {
	case id.Year < minYear:
		return fmt.Errorf("%w: year %d", ErrInvalidSessionID, id.Year)
	case strings.TrimSpace(id.Event) == "":
		return fmt.Errorf("%w: missing event", ErrInvalidSessionID)
	}
	if _, err := ParseSessionType(string(id.Type)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSessionID, err)
	}
	return nil
}

// Key returns a stable, case-folded key for memoization.
func (id SessionID) Key() string {
	return fmt.Sprintf("%d|%s|%s", id.Year, strings.ToLower(strings.TrimSpace(id.Event)), id.Type)
}

func (id SessionID) String() string {
	return fmt.Sprintf("%s %d (%s)", id.Event, id.Year, id.Type)
}
