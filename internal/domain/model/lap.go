package model

import (
	"strings"
	"time"
)

// SectorCount is the number of timing sectors per lap.
const SectorCount = 3

// Lap is one measured lap for one driver in one session.
type Lap struct {
	Driver    string // three-letter code, e.g. "VER"
	LapNumber int    // 1-based within the session
	LapTime   Duration
	Sectors   [SectorCount]Duration
	StartedAt time.Time
}

// LapSet is the ordered lap table of a session, possibly filtered to one
// driver. It is treated as immutable once obtained.
type LapSet []Lap

// NormalizeDriver folds a driver code the way user input is matched.
func NormalizeDriver(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PickDriver returns the laps of one driver in original order.
func (s LapSet) PickDriver(code string) LapSet {
	code = NormalizeDriver(code)
	var out LapSet
	for _, l := range s {
		if NormalizeDriver(l.Driver) == code {
			out = append(out, l)
		}
	}
	return out
}

// Drivers lists distinct driver codes in first-seen order.
func (s LapSet) Drivers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range s {
		code := NormalizeDriver(l.Driver)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// TelemetrySample is one car position/speed sample along a lap.
type TelemetrySample struct {
	X        float64
	Y        float64
	Distance float64 // metres from lap start
	Speed    float64 // km/h
}
