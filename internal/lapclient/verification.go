package lapclient

import (
	"errors"
	"fmt"
	"math"
)

// ErrInconsistent is returned when responses contradict each other.
var ErrInconsistent = errors.New("inconsistent results")

// tolerance absorbs the float rounding of second values.
const tolerance = 1e-6

// Verify checks the arithmetic a correct service must satisfy: the gain and
// comparison deltas match the lap times, and the ranking is sorted with
// 1-based positions. A negative gain is valid: lap and sector times are
// rounded separately, and the fastest lap may lack a sector that slower
// laps have.
func Verify(rep *Report) error {
	if s := rep.Summary; s != nil {
		if s.Actual.LapTime == nil {
			return fmt.Errorf("%w: summary without a lap time", ErrInconsistent)
		}
		if math.Abs(*s.Actual.LapTime-s.Optimal.Time-s.Gain) > tolerance {
			return fmt.Errorf("%w: gain %.3f does not match lap times", ErrInconsistent, s.Gain)
		}
	}

	if c := rep.Compare; c != nil {
		if c.A.LapTime == nil || c.B.LapTime == nil {
			return fmt.Errorf("%w: comparison without lap times", ErrInconsistent)
		}
		if math.Abs(*c.A.LapTime-*c.B.LapTime-c.Delta) > tolerance {
			return fmt.Errorf("%w: delta %.3f does not match %s and %s", ErrInconsistent, c.Delta, c.A.Driver, c.B.Driver)
		}
	}

	if r := rep.Ranking; r != nil {
		for i, l := range r.Laps {
			if l.Position != i+1 {
				return fmt.Errorf("%w: position %d at row %d", ErrInconsistent, l.Position, i+1)
			}
			if i > 0 && l.LapTime < r.Laps[i-1].LapTime {
				return fmt.Errorf("%w: ranking not sorted at %s", ErrInconsistent, l.Driver)
			}
		}
	}
	return nil
}
