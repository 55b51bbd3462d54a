package lapclient

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/okian/perfectlap/internal/domain/types"
)

const (
	barWidth = 40
	barRune  = "█"
	noTime   = "-"
	// axisFloor zooms bar charts so that small gaps between lap times stay
	// visible: the axis starts at this fraction of the fastest time.
	axisFloor = 0.99
)

// Printer writes reports as plain or coloured text.
type Printer struct {
	w       io.Writer
	heading *color.Color
	faster  *color.Color
	slower  *color.Color
	bar     *color.Color
	dim     *color.Color
}

// NewPrinter creates a printer. Colours are also dropped when the output is
// not a terminal.
func NewPrinter(w io.Writer, colored bool) *Printer {
	p := &Printer{
		w:       w,
		heading: color.New(color.Bold),
		faster:  color.New(color.FgGreen),
		slower:  color.New(color.FgRed),
		bar:     color.New(color.FgCyan),
		dim:     color.New(color.Faint),
	}
	if !colored {
		for _, c := range []*color.Color{p.heading, p.faster, p.slower, p.bar, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

// Report prints every part of rep that is present.
func (p *Printer) Report(rep *Report) {
	if rep.Summary != nil {
		p.Summary(*rep.Summary)
		fmt.Fprintln(p.w)
	}
	if rep.Compare != nil {
		p.Compare(*rep.Compare)
		fmt.Fprintln(p.w)
	}
	if rep.Ranking != nil {
		p.Ranking(*rep.Ranking)
		fmt.Fprintln(p.w)
	}
	p.dim.Fprintf(p.w, "done in %s\n", durafmt.ParseShort(rep.Elapsed.Round(time.Millisecond)))
}

// Summary prints the fastest lap against the optimal lap as a bar chart.
func (p *Printer) Summary(s SummaryResult) {
	p.heading.Fprintf(p.w, "%s  %s - actual vs optimal (%s)\n", sessionTitle(s.Session), s.Driver, lapLabel(s.Actual))

	actual := value(s.Actual.LapTime)
	bars := barLengths([]float64{actual, s.Optimal.Time}, barWidth)
	fmt.Fprintf(p.w, "  %-8s %9s  %s\n", "Actual", FormatLapTime(actual), p.bar.Sprint(strings.Repeat(barRune, bars[0])))
	fmt.Fprintf(p.w, "  %-8s %9s  %s\n", "Optimal", FormatLapTime(s.Optimal.Time), p.bar.Sprint(strings.Repeat(barRune, bars[1])))
	fmt.Fprintf(p.w, "  %-8s %9s\n", "Gain", FormatDelta(s.Gain))

	for i := range s.Actual.Sectors {
		a, o := s.Actual.Sectors[i], s.Optimal.Sectors[i]
		fmt.Fprintf(p.w, "  S%-7d %9s %9s  %s\n", i+1, formatPtr(a), formatPtr(o), p.delta(a, o))
	}
}

// Compare prints the two laps side by side with coloured deltas.
func (p *Printer) Compare(c CompareResult) {
	p.heading.Fprintf(p.w, "%s  %s vs %s\n", sessionTitle(c.Session), c.A.Driver, c.B.Driver)
	fmt.Fprintf(p.w, "  %-8s %9s %9s  %s\n", "", c.A.Driver, c.B.Driver, "delta")
	fmt.Fprintf(p.w, "  %-8s %9s %9s  %s\n", "Lap", formatPtr(c.A.LapTime), formatPtr(c.B.LapTime), p.signed(c.Delta))
	for i := range c.A.Sectors {
		a, b := c.A.Sectors[i], c.B.Sectors[i]
		fmt.Fprintf(p.w, "  S%-7d %9s %9s  %s\n", i+1, formatPtr(a), formatPtr(b), p.delta(a, b))
	}

	switch c.Faster {
	case "":
		fmt.Fprintln(p.w, "  dead heat")
	default:
		fmt.Fprintf(p.w, "  %s faster by %.3fs\n", p.faster.Sprint(c.Faster), math.Abs(c.Delta))
	}
}

// Ranking prints the best lap of every driver as a bar chart, fastest first.
func (p *Printer) Ranking(r RankingResult) {
	p.heading.Fprintf(p.w, "%s  best laps\n", sessionTitle(r.Session))
	if len(r.Laps) == 0 {
		fmt.Fprintln(p.w, "  no timed laps")
		return
	}

	times := make([]float64, len(r.Laps))
	for i, l := range r.Laps {
		times[i] = l.LapTime
	}
	bars := barLengths(times, barWidth)
	leader := r.Laps[0].LapTime
	for i, l := range r.Laps {
		gap := ""
		if i > 0 {
			gap = p.slower.Sprint(FormatDelta(l.LapTime - leader))
		}
		fmt.Fprintf(p.w, "  %5s  %-4s %9s  %s %s\n",
			humanize.Ordinal(l.Position), l.Driver, FormatLapTime(l.LapTime),
			p.bar.Sprint(strings.Repeat(barRune, bars[i])), gap)
	}
}

func (p *Printer) delta(a, b *float64) string {
	if a == nil || b == nil {
		return noTime
	}
	return p.signed(*a - *b)
}

func (p *Printer) signed(d float64) string {
	s := FormatDelta(d)
	switch {
	case s == "+0.000":
		return s
	case d < 0:
		return p.faster.Sprint(s)
	default:
		return p.slower.Sprint(s)
	}
}

// FormatLapTime renders seconds as m:ss.mmm, or ss.mmm under a minute.
func FormatLapTime(seconds float64) string {
	d := types.Duration(seconds).Round(time.Millisecond)
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	m := d / time.Minute
	rest := (d - m*time.Minute).Seconds()
	if m == 0 {
		return fmt.Sprintf("%s%.3f", sign, rest)
	}
	return fmt.Sprintf("%s%d:%06.3f", sign, int(m), rest)
}

// FormatDelta renders a signed gap in seconds.
func FormatDelta(seconds float64) string {
	d := types.Duration(seconds).Round(time.Millisecond)
	if d == 0 {
		return "+0.000"
	}
	return fmt.Sprintf("%+.3f", d.Seconds())
}

func formatPtr(v *float64) string {
	if v == nil {
		return noTime
	}
	return FormatLapTime(*v)
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func lapLabel(l types.Lap) string {
	return fmt.Sprintf("lap %d", l.LapNumber)
}

func sessionTitle(s types.Session) string {
	return fmt.Sprintf("%d %s %s", s.Year, s.Event, s.Session)
}

// barLengths scales values onto [1, width] over an axis starting just
// below the smallest value.
func barLengths(values []float64, width int) []int {
	out := make([]int, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	floor := lo * axisFloor
	span := hi - floor
	for i, v := range values {
		if span <= 0 {
			out[i] = width
			continue
		}
		out[i] = max(1, int(math.Round(float64(width)*(v-floor)/span)))
	}
	return out
}
