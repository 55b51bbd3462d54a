package lapclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/perfectlap/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrConfig is returned for unusable run configurations.
var ErrConfig = errors.New("invalid lapcheck configuration")

// Validate checks the configuration before any request is made.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: missing url", ErrConfig)
	case c.Year == 0:
		return fmt.Errorf("%w: missing year", ErrConfig)
	case strings.TrimSpace(c.Event) == "":
		return fmt.Errorf("%w: missing event", ErrConfig)
	case strings.TrimSpace(c.Session) == "":
		return fmt.Errorf("%w: missing session", ErrConfig)
	case (c.A == "") != (c.B == ""):
		return fmt.Errorf("%w: -a and -b go together", ErrConfig)
	}
	return nil
}

// Run checks the service, fetches the requested analyses concurrently,
// verifies them and prints the report to out.
func Run(ctx context.Context, config *Config, out io.Writer) (*Report, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := logger.Get().Named("lapcheck")

	log.Info(ctx, "starting lap check",
		logger.String("baseURL", config.BaseURL),
		logger.Int("year", config.Year),
		logger.String("event", config.Event),
		logger.String("session", config.Session),
		logger.String("driver", config.Driver),
	)

	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Fetch analyses
	report := &Report{}
	q := config.Query()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := client.Summary(gctx, q, config.Driver)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		report.Summary = &s
		return nil
	})
	if config.A != "" {
		g.Go(func() error {
			c, err := client.Compare(gctx, q, config.A, config.B)
			if err != nil {
				return fmt.Errorf("compare: %w", err)
			}
			report.Compare = &c
			return nil
		})
	}
	if config.Ranking {
		g.Go(func() error {
			r, err := client.BestLaps(gctx, q)
			if err != nil {
				return fmt.Errorf("best laps: %w", err)
			}
			report.Ranking = &r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Step 3: Verify results
	if err := Verify(report); err != nil {
		log.Warn(ctx, "inconsistent results", logger.Error(err))
		return report, err
	}

	// Step 4: Print
	report.Elapsed = time.Since(start)
	NewPrinter(out, config.Color).Report(report)

	log.Debug(ctx, "lap check completed", logger.Duration("took", report.Elapsed))
	return report, nil
}
