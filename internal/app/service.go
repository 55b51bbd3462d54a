// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/perfectlap/internal/adapters/provider"
	"github.com/okian/perfectlap/internal/domain/analyzer"
	"github.com/okian/perfectlap/internal/domain/memo"
	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/pkg/logger"
	"github.com/okian/perfectlap/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Analysis operation names used in logs and metrics.
const (
	OpFastest   = "fastest"
	OpOptimal   = "optimal"
	OpCompare   = "compare"
	OpSummary   = "summary"
	OpBestLaps  = "best_laps"
	OpTelemetry = "telemetry"
)

// Service loads sessions through a provider and runs the lap analyzer on them.
// Session handles are memoized per session identifier; every call works on
// its own lap table.
type Service struct {
	mu sync.RWMutex

	// Core components
	provider provider.Provider
	sessions *memo.Memo[provider.Session]
	resolve  singleflight.Group

	// Configuration
	memoSize int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the session-data provider.
func WithProvider(p provider.Provider) Option {
	return func(s *Service) {
		s.provider = p
	}
}

// WithSessionMemoSize sets how many resolved sessions are kept in memory.
// Zero or negative keeps every session.
func WithSessionMemoSize(size int) Option {
	return func(s *Service) {
		s.memoSize = size
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		memoSize: 16,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the session memo. It fails when no provider is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.provider == nil {
		return ErrNoProvider
	}

	s.sessions = memo.New[provider.Session](memo.WithMaxSize(s.memoSize))
	s.started = true
	s.logger.Info(ctx, "lap analysis service started",
		logger.String("provider", fmt.Sprintf("%T", s.provider)),
		logger.Int("sessionMemoSize", s.memoSize),
	)
	return nil
}

// Stop drops memoized sessions.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.sessions.Reset()
	metrics.UpdateMemoizedSessions(0)
	s.started = false
	s.logger.Info(context.Background(), "lap analysis service stopped")
}

// FastestLap returns the fastest lap of driver, or of the whole field when
// driver is empty.
func (s *Service) FastestLap(ctx context.Context, id model.SessionID, driver string) (lap model.Lap, err error) {
	defer s.observe(ctx, OpFastest, id, time.Now(), &err)

	laps, err := s.driverLaps(ctx, id, driver)
	if err != nil {
		return model.Lap{}, err
	}
	return analyzer.FastestLap(laps)
}

// OptimalLap returns the optimal lap of driver, or of the whole field when
// driver is empty.
func (s *Service) OptimalLap(ctx context.Context, id model.SessionID, driver string) (opt model.OptimalLap, err error) {
	defer s.observe(ctx, OpOptimal, id, time.Now(), &err)

	laps, err := s.driverLaps(ctx, id, driver)
	if err != nil {
		return model.OptimalLap{}, err
	}
	return analyzer.OptimalLap(laps)
}

// Compare compares the fastest laps of drivers a and b.
func (s *Service) Compare(ctx context.Context, id model.SessionID, a, b string) (rec model.ComparisonRecord, err error) {
	defer s.observe(ctx, OpCompare, id, time.Now(), &err)

	laps, err := s.laps(ctx, id)
	if err != nil {
		return model.ComparisonRecord{}, err
	}
	return analyzer.CompareDrivers(laps, a, b)
}

// Summary sets the fastest lap of driver (or the field) against its optimal lap.
func (s *Service) Summary(ctx context.Context, id model.SessionID, driver string) (sum model.LapSummary, err error) {
	defer s.observe(ctx, OpSummary, id, time.Now(), &err)

	laps, err := s.laps(ctx, id)
	if err != nil {
		return model.LapSummary{}, err
	}
	return analyzer.Summarize(laps, driver)
}

// BestLaps ranks drivers by their best lap time.
func (s *Service) BestLaps(ctx context.Context, id model.SessionID) (ranking []model.BestLap, err error) {
	defer s.observe(ctx, OpBestLaps, id, time.Now(), &err)

	laps, err := s.laps(ctx, id)
	if err != nil {
		return nil, err
	}
	return analyzer.BestLaps(laps), nil
}

// Telemetry returns the samples along the fastest lap of driver, or of the
// whole field when driver is empty.
func (s *Service) Telemetry(ctx context.Context, id model.SessionID, driver string) (lap model.Lap, samples []model.TelemetrySample, err error) {
	defer s.observe(ctx, OpTelemetry, id, time.Now(), &err)

	sess, err := s.session(ctx, id)
	if err != nil {
		return model.Lap{}, nil, err
	}
	laps, err := s.load(ctx, sess)
	if err != nil {
		return model.Lap{}, nil, err
	}
	if laps, err = pick(laps, driver); err != nil {
		return model.Lap{}, nil, err
	}
	if lap, err = analyzer.FastestLap(laps); err != nil {
		return model.Lap{}, nil, err
	}
	samples, err = sess.LoadTelemetry(ctx, lap)
	if err != nil {
		return model.Lap{}, nil, err
	}
	return lap, samples, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"sessionMemoSize": s.memoSize,
	}
	if s.started {
		n := s.sessions.Len()
		stats["memoizedSessions"] = n
		metrics.UpdateMemoizedSessions(int(n))
	}
	return stats
}

// session returns the memoized handle for id, resolving it on first use.
// Concurrent first uses share one resolution.
func (s *Service) session(ctx context.Context, id model.SessionID) (provider.Session, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	started := s.started
	sessions := s.sessions
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	key := id.Key()
	if sess, ok := sessions.Get(ctx, key); ok {
		metrics.RecordSessionLoad("memo")
		return sess, nil
	}

	// The shared resolution outlives any single caller; the provider bounds
	// it with its own request timeout.
	shared := context.WithoutCancel(ctx)
	ch := s.resolve.DoChan(key, func() (any, error) {
		start := time.Now()
		sess, err := s.provider.GetSession(shared, id)
		metrics.RecordSessionLoadLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			return nil, err
		}
		if sessions.Put(shared, key, sess) {
			s.logger.Debug(shared, "evicted oldest memoized session")
		}
		metrics.RecordSessionLoad("provider")
		metrics.UpdateMemoizedSessions(int(sessions.Len()))
		return sess, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(provider.Session), nil
	}
}

func (s *Service) laps(ctx context.Context, id model.SessionID) (model.LapSet, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, sess)
}

// load fetches the lap table of sess. A handle that fails to load is
// forgotten so the next request resolves the session again.
func (s *Service) load(ctx context.Context, sess provider.Session) (model.LapSet, error) {
	laps, err := sess.LoadLaps(ctx)
	if err != nil {
		s.mu.RLock()
		if s.sessions != nil {
			s.sessions.Forget(ctx, sess.ID().Key())
		}
		s.mu.RUnlock()
		return nil, err
	}
	return laps, nil
}

func (s *Service) driverLaps(ctx context.Context, id model.SessionID, driver string) (model.LapSet, error) {
	laps, err := s.laps(ctx, id)
	if err != nil {
		return nil, err
	}
	return pick(laps, driver)
}

// pick narrows laps to driver. An empty driver keeps the whole field.
func pick(laps model.LapSet, driver string) (model.LapSet, error) {
	code := model.NormalizeDriver(driver)
	if code == "" {
		return laps, nil
	}
	picked := laps.PickDriver(code)
	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: %s", analyzer.ErrDriverNotFound, code)
	}
	return picked, nil
}

func (s *Service) observe(ctx context.Context, op string, id model.SessionID, start time.Time, errp *error) {
	took := time.Since(start)
	outcome := Outcome(*errp)
	metrics.RecordAnalysis(op, outcome)
	metrics.RecordAnalysisLatency(op, float64(took.Microseconds())/1000)

	l := s.log()
	if *errp != nil {
		metrics.RecordErrorByComponent("service", outcome)
		l.Warn(ctx, "analysis failed",
			logger.String("op", op),
			logger.String("session", id.String()),
			logger.String("outcome", outcome),
			logger.Error(*errp),
		)
		return
	}
	l.Debug(ctx, "analysis done",
		logger.String("op", op),
		logger.String("session", id.String()),
		logger.Duration("took", took),
	)
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Get().Named("service")
	}
	return s.logger
}

// Outcome classifies err for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, analyzer.ErrDriverNotFound):
		return "driver_not_found"
	case errors.Is(err, analyzer.ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, analyzer.ErrNoSectorData):
		return "no_sector_data"
	case errors.Is(err, provider.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, provider.ErrNoTelemetry):
		return "no_telemetry"
	case errors.Is(err, provider.ErrNetwork), errors.Is(err, provider.ErrDecode):
		return "upstream"
	case errors.Is(err, model.ErrInvalidSessionID), errors.Is(err, model.ErrInvalidSessionType):
		return "invalid"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
