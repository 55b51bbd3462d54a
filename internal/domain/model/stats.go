package model

import "time"

// OptimalLap is the theoretical best lap: the sum of the best sector times
// seen in a lap set, not necessarily achieved on a single lap.
type OptimalLap struct {
	Time    time.Duration
	Sectors [SectorCount]Duration // null where no sector data existed
}

// Seconds returns the optimal lap time in fractional seconds.
func (o OptimalLap) Seconds() float64 { return o.Time.Seconds() }

// DriverLapStats are the lap and sector times of a driver's fastest lap.
type DriverLapStats struct {
	Driver    string
	LapNumber int
	LapTime   Duration
	Sectors   [SectorCount]Duration
}

// ComparisonRecord pairs two drivers' fastest laps. Delta is A minus B, so a
// negative delta means driver A was faster.
type ComparisonRecord struct {
	A     DriverLapStats
	B     DriverLapStats
	Delta time.Duration
}

// DeltaSeconds returns Delta in fractional seconds.
func (c ComparisonRecord) DeltaSeconds() float64 { return c.Delta.Seconds() }

// LapSummary sets a fastest lap against the optimal lap of the same lap set.
type LapSummary struct {
	Driver  string
	Actual  Lap
	Optimal OptimalLap
	Gain    time.Duration // actual minus optimal; negative when sector sums exceed the lap time
}

// BestLap is one row of a session's best-lap ranking.
type BestLap struct {
	Position int
	Driver   string
	LapTime  time.Duration
}
