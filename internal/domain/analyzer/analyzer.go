// Package analyzer computes lap statistics and driver comparisons over a
// session's lap table.
//
// Every function is pure: it reads the given LapSet, never mutates it, and
// keeps no state between calls.
package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/perfectlap/internal/domain/model"
)

// FastestLap returns the lap with the lowest lap time. Laps without a lap
// time are ignored; on equal times the earliest lap in the set wins.
func FastestLap(laps model.LapSet) (model.Lap, error) {
	best := -1
	for i, l := range laps {
		if !l.LapTime.Valid {
			continue
		}
		if best < 0 || l.LapTime.D < laps[best].LapTime.D {
			best = i
		}
	}
	if best < 0 {
		return model.Lap{}, ErrEmptyResult
	}
	return laps[best], nil
}

// OptimalLap sums the best time of each sector across the whole set. A sector
// nobody has a time for is left out of the sum rather than counted as zero.
func OptimalLap(laps model.LapSet) (model.OptimalLap, error) {
	var out model.OptimalLap
	for _, l := range laps {
		for i, s := range l.Sectors {
			if !s.Valid {
				continue
			}
			if !out.Sectors[i].Valid || s.D < out.Sectors[i].D {
				out.Sectors[i] = s
			}
		}
	}

	found := false
	for _, s := range out.Sectors {
		if s.Valid {
			out.Time += s.D
			found = true
		}
	}
	if !found {
		return model.OptimalLap{}, ErrNoSectorData
	}
	return out, nil
}

// CompareDrivers pairs the fastest laps of drivers a and b. The sector times
// are the splits of each fastest lap, not the drivers' best sectors.
func CompareDrivers(laps model.LapSet, a, b string) (model.ComparisonRecord, error) {
	sa, err := driverStats(laps, a)
	if err != nil {
		return model.ComparisonRecord{}, err
	}
	sb, err := driverStats(laps, b)
	if err != nil {
		return model.ComparisonRecord{}, err
	}
	return model.ComparisonRecord{
		A:     sa,
		B:     sb,
		Delta: sa.LapTime.D - sb.LapTime.D,
	}, nil
}

func driverStats(laps model.LapSet, driver string) (model.DriverLapStats, error) {
	code := model.NormalizeDriver(driver)
	own := laps.PickDriver(code)
	if len(own) == 0 {
		return model.DriverLapStats{}, fmt.Errorf("%w: %s", ErrDriverNotFound, code)
	}
	fastest, err := FastestLap(own)
	if err != nil {
		return model.DriverLapStats{}, fmt.Errorf("%s: %w", code, err)
	}
	return model.DriverLapStats{
		Driver:    code,
		LapNumber: fastest.LapNumber,
		LapTime:   fastest.LapTime,
		Sectors:   fastest.Sectors,
	}, nil
}

// Summarize sets the fastest lap against the optimal lap of the same laps.
// An empty driver summarizes the whole field.
func Summarize(laps model.LapSet, driver string) (model.LapSummary, error) {
	code := model.NormalizeDriver(driver)
	if code != "" {
		laps = laps.PickDriver(code)
		if len(laps) == 0 {
			return model.LapSummary{}, fmt.Errorf("%w: %s", ErrDriverNotFound, code)
		}
	}
	if len(laps) == 0 {
		return model.LapSummary{}, ErrEmptyResult
	}

	fastest, err := FastestLap(laps)
	if err != nil {
		return model.LapSummary{}, err
	}
	optimal, err := OptimalLap(laps)
	if err != nil {
		return model.LapSummary{}, err
	}
	if code == "" {
		code = model.NormalizeDriver(fastest.Driver)
	}
	return model.LapSummary{
		Driver:  code,
		Actual:  fastest,
		Optimal: optimal,
		Gain:    fastest.LapTime.D - optimal.Time,
	}, nil
}

// BestLaps ranks drivers by their best lap time. Drivers without any timed
// lap are left out; equal times keep the order in which drivers first appear.
func BestLaps(laps model.LapSet) []model.BestLap {
	best := make(map[string]time.Duration)
	for _, l := range laps {
		if !l.LapTime.Valid {
			continue
		}
		code := model.NormalizeDriver(l.Driver)
		if cur, ok := best[code]; !ok || l.LapTime.D < cur {
			best[code] = l.LapTime.D
		}
	}

	// First-seen order breaks ties; drivers without a timed lap drop out.
	order := make([]string, 0, len(best))
	for _, code := range laps.Drivers() {
		if _, ok := best[code]; ok {
			order = append(order, code)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return best[order[i]] < best[order[j]]
	})

	out := make([]model.BestLap, len(order))
	for i, code := range order {
		out[i] = model.BestLap{Position: i + 1, Driver: code, LapTime: best[code]}
	}
	return out
}
