// Package types contains the response bodies shared by the HTTP API and its
// clients. Times are fractional seconds; missing times are null.
package types

import (
	"time"

	"github.com/okian/perfectlap/internal/domain/model"
)

// Session echoes the session a response was computed for.
type Session struct {
	Year    int    `json:"year"`
	Event   string `json:"event"`
	Session string `json:"session"`
}

// Lap is one lap with its sector splits.
type Lap struct {
	Driver    string                      `json:"driver"`
	LapNumber int                         `json:"lap_number"`
	LapTime   *float64                    `json:"lap_time"`
	Sectors   [model.SectorCount]*float64 `json:"sectors"`
}

// Optimal is the sum of the best sector times.
type Optimal struct {
	Time    float64                     `json:"time"`
	Sectors [model.SectorCount]*float64 `json:"sectors"`
}

// FastestResponse is the body of /fastest.
type FastestResponse struct {
	Session Session `json:"session"`
	Driver  string  `json:"driver,omitempty"`
	Lap     Lap     `json:"lap"`
}

// OptimalResponse is the body of /optimal.
type OptimalResponse struct {
	Session Session `json:"session"`
	Driver  string  `json:"driver,omitempty"`
	Optimal Optimal `json:"optimal"`
}

// CompareResponse is the body of /compare. Delta is A minus B.
type CompareResponse struct {
	Session Session `json:"session"`
	A       Lap     `json:"a"`
	B       Lap     `json:"b"`
	Delta   float64 `json:"delta"`
	Faster  string  `json:"faster,omitempty"`
}

// SummaryResponse is the body of /summary.
type SummaryResponse struct {
	Session Session `json:"session"`
	Driver  string  `json:"driver"`
	Actual  Lap     `json:"actual"`
	Optimal Optimal `json:"optimal"`
	Gain    float64 `json:"gain"`
}

// BestLap is one row of the best-lap ranking.
type BestLap struct {
	Position int     `json:"position"`
	Driver   string  `json:"driver"`
	LapTime  float64 `json:"lap_time"`
}

// BestLapsResponse is the body of /best-laps.
type BestLapsResponse struct {
	Session Session   `json:"session"`
	Laps    []BestLap `json:"laps"`
}

// Sample is one telemetry point.
type Sample struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"`
}

// TelemetryResponse is the body of /telemetry.
type TelemetryResponse struct {
	Session   Session  `json:"session"`
	Driver    string   `json:"driver"`
	LapNumber int      `json:"lap_number"`
	LapTime   float64  `json:"lap_time"`
	Samples   []Sample `json:"samples"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// NewSession converts a session identifier.
func NewSession(id model.SessionID) Session {
	return Session{Year: id.Year, Event: id.Event, Session: string(id.Type)}
}

// NewLap converts a lap.
func NewLap(l model.Lap) Lap {
	return Lap{
		Driver:    l.Driver,
		LapNumber: l.LapNumber,
		LapTime:   seconds(l.LapTime),
		Sectors:   sectors(l.Sectors),
	}
}

// NewStatsLap converts one side of a comparison.
func NewStatsLap(s model.DriverLapStats) Lap {
	return Lap{
		Driver:    s.Driver,
		LapNumber: s.LapNumber,
		LapTime:   seconds(s.LapTime),
		Sectors:   sectors(s.Sectors),
	}
}

// NewOptimal converts an optimal lap.
func NewOptimal(o model.OptimalLap) Optimal {
	return Optimal{Time: o.Seconds(), Sectors: sectors(o.Sectors)}
}

// NewCompare converts a comparison record.
func NewCompare(id model.SessionID, rec model.ComparisonRecord) CompareResponse {
	out := CompareResponse{
		Session: NewSession(id),
		A:       NewStatsLap(rec.A),
		B:       NewStatsLap(rec.B),
		Delta:   rec.DeltaSeconds(),
	}
	switch {
	case rec.Delta < 0:
		out.Faster = rec.A.Driver
	case rec.Delta > 0:
		out.Faster = rec.B.Driver
	}
	return out
}

// NewSummary converts a lap summary.
func NewSummary(id model.SessionID, s model.LapSummary) SummaryResponse {
	return SummaryResponse{
		Session: NewSession(id),
		Driver:  s.Driver,
		Actual:  NewLap(s.Actual),
		Optimal: NewOptimal(s.Optimal),
		Gain:    s.Gain.Seconds(),
	}
}

// NewBestLaps converts a best-lap ranking.
func NewBestLaps(id model.SessionID, ranking []model.BestLap) BestLapsResponse {
	out := BestLapsResponse{Session: NewSession(id), Laps: make([]BestLap, len(ranking))}
	for i, r := range ranking {
		out.Laps[i] = BestLap{Position: r.Position, Driver: r.Driver, LapTime: r.LapTime.Seconds()}
	}
	return out
}

// NewTelemetry converts the samples of one lap.
func NewTelemetry(id model.SessionID, lap model.Lap, samples []model.TelemetrySample) TelemetryResponse {
	out := TelemetryResponse{
		Session:   NewSession(id),
		Driver:    lap.Driver,
		LapNumber: lap.LapNumber,
		LapTime:   lap.LapTime.Seconds(),
		Samples:   make([]Sample, len(samples)),
	}
	for i, s := range samples {
		out.Samples[i] = Sample(s)
	}
	return out
}

// Duration turns fractional seconds back into a duration, rounded to the
// microsecond.
func Duration(seconds float64) time.Duration {
	return model.Seconds(seconds).D
}

func seconds(d model.Duration) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Seconds()
	return &v
}

func sectors(in [model.SectorCount]model.Duration) [model.SectorCount]*float64 {
	var out [model.SectorCount]*float64
	for i, d := range in {
		out[i] = seconds(d)
	}
	return out
}
