package model

import (
	"math"
	"time"
)

// Duration is a lap or sector time that may be missing, for example on an
// aborted lap or when timing loops failed.
type Duration struct {
	D     time.Duration
	Valid bool
}

// Dur returns a valid Duration.
func Dur(d time.Duration) Duration { return Duration{D: d, Valid: true} }

// Seconds returns a valid Duration from fractional seconds, rounded to the
// nearest microsecond so that decimal inputs like 90.123 stay exact.
func Seconds(s float64) Duration {
	return Dur(time.Duration(math.Round(s*1e6)) * time.Microsecond)
}

// Null is the missing Duration.
var Null = Duration{}

// Seconds returns the value in fractional seconds; 0 when missing.
func (d Duration) Seconds() float64 {
	if !d.Valid {
		return 0
	}
	return d.D.Seconds()
}
