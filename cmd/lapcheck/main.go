package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/perfectlap/internal/lapclient"
)

// Default configuration constants.
const (
	defaultTimeout    = 2 * time.Minute
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		year    = flag.Int("year", 0, "Season")
		event   = flag.String("event", "", "Event name or fragment")
		session = flag.String("session", "Q", "Session: FP1, FP2, FP3, Q or R")
		driver  = flag.String("driver", "", "Driver code for the summary (default: whole field)")
		a       = flag.String("a", "", "First driver to compare")
		b       = flag.String("b", "", "Second driver to compare")
		ranking = flag.Bool("ranking", true, "Print the best-lap ranking")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		noColor = flag.Bool("no-color", false, "Disable coloured output")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		lapclient.ShowHelp(os.Stdout)
		return
	}

	if err := lapclient.SetupLogging(*verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &lapclient.Config{
		BaseURL: *baseURL,
		Year:    *year,
		Event:   *event,
		Session: *session,
		Driver:  *driver,
		A:       *a,
		B:       *b,
		Ranking: *ranking,
		Timeout: *timeout,
		Color:   !*noColor,
		Verbose: *verbose,
	}

	if _, err := lapclient.Run(ctx, config, os.Stdout); err != nil {
		_, _ = os.Stderr.WriteString("lapcheck: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
