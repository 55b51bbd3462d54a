package provider

import (
	"sort"
	"time"

	"github.com/okian/perfectlap/internal/domain/model"
)

const kphToMps = 1 / 3.6

// buildTelemetry joins position samples inside [from, to] with the latest
// speed sample at or before each of them, and integrates distance from speed
// with the trapezoid rule.
func buildTelemetry(locations []apiLocation, carData []apiCarData, from, to time.Time) []model.TelemetrySample {
	locs := make([]apiLocation, 0, len(locations))
	for _, l := range locations {
		if l.Date.Before(from) || l.Date.After(to) {
			continue
		}
		locs = append(locs, l)
	}
	sort.SliceStable(locs, func(i, j int) bool { return locs[i].Date.Before(locs[j].Date.Time) })

	speeds := make([]apiCarData, len(carData))
	copy(speeds, carData)
	sort.SliceStable(speeds, func(i, j int) bool { return speeds[i].Date.Before(speeds[j].Date.Time) })

	out := make([]model.TelemetrySample, 0, len(locs))
	next := 0
	speed := 0.0
	if len(speeds) > 0 {
		speed = speeds[0].Speed
	}
	for i, l := range locs {
		for next < len(speeds) && !speeds[next].Date.After(l.Date.Time) {
			speed = speeds[next].Speed
			next++
		}
		sample := model.TelemetrySample{X: l.X, Y: l.Y, Speed: speed}
		if i > 0 {
			prev := out[i-1]
			dt := l.Date.Sub(locs[i-1].Date.Time).Seconds()
			sample.Distance = prev.Distance + (prev.Speed+speed)/2*kphToMps*dt
		}
		out = append(out, sample)
	}
	return out
}
