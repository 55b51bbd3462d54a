package lapclient

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/perfectlap/pkg/logger"
)

// SetupLogging initializes the global logger on stderr so that reports on
// stdout stay clean.
func SetupLogging(verbose bool) error {
	if err := logger.InitWith(os.Stderr, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the lapcheck tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `lapcheck
========

Terminal client for the perfectlap service: prints the fastest lap against
the optimal lap, an optional two-driver comparison and the best-lap ranking.

Usage:
  go run ./cmd/lapcheck -year 2024 -event Monaco -session Q [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -year int
        Season
  -event string
        Event name or fragment, e.g. "Monaco" or "Silverstone"
  -session string
        Session: FP1, FP2, FP3, Q or R (default "Q")
  -driver string
        Driver code for the summary (default: whole field)
  -a string, -b string
        Compare the fastest laps of two drivers
  -ranking
        Print the best-lap ranking (default true)
  -timeout duration
        HTTP request timeout (default 2m)
  -no-color
        Disable coloured output
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Leclerc's pole lap against his optimal lap
  go run ./cmd/lapcheck -year 2024 -event Monaco -session Q -driver LEC

  # Verstappen against Hamilton in Abu Dhabi 2021 qualifying
  go run ./cmd/lapcheck -year 2021 -event "Abu Dhabi" -a VER -b HAM
`)
}
