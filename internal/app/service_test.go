package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/perfectlap/internal/adapters/provider"
	service "github.com/okian/perfectlap/internal/app"
	"github.com/okian/perfectlap/internal/domain/analyzer"
	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.InitWith(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
}

var silverstone = model.SessionID{Year: 2023, Event: "British Grand Prix", Type: model.Qualifying}

func lap(driver string, n int, lapTime float64, s1, s2, s3 float64) model.Lap {
	return model.Lap{
		Driver:    driver,
		LapNumber: n,
		LapTime:   model.Seconds(lapTime),
		Sectors:   [3]model.Duration{model.Seconds(s1), model.Seconds(s2), model.Seconds(s3)},
	}
}

func sessionLaps() model.LapSet {
	return model.LapSet{
		lap("VER", 1, 90.0, 30.0, 30.0, 30.0),
		lap("VER", 2, 89.5, 29.8, 29.9, 29.8),
		lap("HAM", 1, 90.2, 30.1, 29.7, 30.4),
		lap("NOR", 1, 90.8, 30.2, 30.3, 30.3),
	}
}

// countingProvider counts session resolutions and can fail lap loads.
type countingProvider struct {
	inner    provider.Provider
	gets     atomic.Int32
	loads    atomic.Int32
	failLoad atomic.Bool
}

func (p *countingProvider) GetSession(ctx context.Context, id model.SessionID) (provider.Session, error) {
	p.gets.Add(1)
	s, err := p.inner.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return &countingSession{Session: s, p: p}, nil
}

type countingSession struct {
	provider.Session
	p *countingProvider
}

func (s *countingSession) LoadLaps(ctx context.Context) (model.LapSet, error) {
	s.p.loads.Add(1)
	if s.p.failLoad.Load() {
		return nil, provider.ErrNetwork
	}
	return s.Session.LoadLaps(ctx)
}

func newProvider() *countingProvider {
	static := provider.NewStatic().
		AddSession(silverstone, sessionLaps()).
		AddTelemetry(silverstone, "VER", 2, []model.TelemetrySample{
			{X: 0, Y: 0, Distance: 0, Speed: 290},
			{X: 5, Y: 5, Distance: 80, Speed: 300},
		})
	return &countingProvider{inner: static}
}

func startService(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		Convey("When it has no provider", func() {
			svc := service.New()

			Convey("Then Start should fail", func() {
				So(errors.Is(svc.Start(context.Background()), service.ErrNoProvider), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When it is not started", func() {
			svc := service.New(service.WithProvider(newProvider()))

			Convey("Then analyses should be refused", func() {
				_, err := svc.FastestLap(context.Background(), silverstone, "")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("Then stats should show it stopped", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
				So(stats["sessionMemoSize"], ShouldEqual, 16)
			})
		})

		Convey("When started and stopped", func() {
			svc := startService(service.WithProvider(newProvider()))
			So(svc.Start(context.Background()), ShouldBeNil) // idempotent
			So(svc.GetStats()["started"], ShouldEqual, true)

			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Analyses(t *testing.T) {
	Convey("Given a started service over a qualifying session", t, func() {
		ctx := context.Background()
		svc := startService(service.WithProvider(newProvider()))
		defer svc.Stop()

		Convey("When asking for the fastest lap of the field", func() {
			got, err := svc.FastestLap(ctx, silverstone, "")
			So(err, ShouldBeNil)
			So(got.Driver, ShouldEqual, "VER")
			So(got.LapNumber, ShouldEqual, 2)
		})

		Convey("When asking for the fastest lap of one driver", func() {
			got, err := svc.FastestLap(ctx, silverstone, "ham")
			So(err, ShouldBeNil)
			So(got.Driver, ShouldEqual, "HAM")
			So(got.LapTime, ShouldResemble, model.Seconds(90.2))
		})

		Convey("When asking for an unknown driver", func() {
			_, err := svc.FastestLap(ctx, silverstone, "XYZ")
			So(errors.Is(err, analyzer.ErrDriverNotFound), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "XYZ")
			So(service.Outcome(err), ShouldEqual, "driver_not_found")
		})

		Convey("When asking for the optimal lap", func() {
			field, err := svc.OptimalLap(ctx, silverstone, "")
			So(err, ShouldBeNil)
			So(field.Time, ShouldEqual, (29800+29700+29800)*time.Millisecond)

			ver, err := svc.OptimalLap(ctx, silverstone, "VER")
			So(err, ShouldBeNil)
			So(ver.Time, ShouldEqual, (29800+29900+29800)*time.Millisecond)
		})

		Convey("When comparing two drivers", func() {
			rec, err := svc.Compare(ctx, silverstone, "VER", "HAM")
			So(err, ShouldBeNil)
			So(rec.Delta, ShouldEqual, -700*time.Millisecond)
			So(rec.A.LapNumber, ShouldEqual, 2)

			_, err = svc.Compare(ctx, silverstone, "VER", "LEC")
			So(errors.Is(err, analyzer.ErrDriverNotFound), ShouldBeTrue)
		})

		Convey("When summarising a driver", func() {
			sum, err := svc.Summary(ctx, silverstone, "VER")
			So(err, ShouldBeNil)
			So(sum.Actual.LapNumber, ShouldEqual, 2)
			So(sum.Gain, ShouldEqual, 0*time.Millisecond)
		})

		Convey("When ranking best laps", func() {
			ranking, err := svc.BestLaps(ctx, silverstone)
			So(err, ShouldBeNil)
			So(ranking, ShouldHaveLength, 3)
			So(ranking[0].Driver, ShouldEqual, "VER")
			So(ranking[2].Driver, ShouldEqual, "NOR")
		})

		Convey("When fetching telemetry of the fastest lap", func() {
			got, samples, err := svc.Telemetry(ctx, silverstone, "VER")
			So(err, ShouldBeNil)
			So(got.LapNumber, ShouldEqual, 2)
			So(samples, ShouldHaveLength, 2)

			_, _, err = svc.Telemetry(ctx, silverstone, "HAM")
			So(errors.Is(err, provider.ErrNoTelemetry), ShouldBeTrue)
		})

		Convey("When the session does not exist", func() {
			other := silverstone
			other.Type = model.Race
			_, err := svc.BestLaps(ctx, other)
			So(errors.Is(err, provider.ErrSessionNotFound), ShouldBeTrue)
			So(service.Outcome(err), ShouldEqual, "session_not_found")
		})

		Convey("When the identifier is invalid", func() {
			_, err := svc.FastestLap(ctx, model.SessionID{Year: 1949, Event: "x", Type: model.Race}, "")
			So(errors.Is(err, model.ErrInvalidSessionID), ShouldBeTrue)
			So(service.Outcome(err), ShouldEqual, "invalid")
		})
	})
}

func TestService_SessionMemo(t *testing.T) {
	Convey("Given a started service with a counting provider", t, func() {
		ctx := context.Background()
		p := newProvider()
		svc := startService(service.WithProvider(p), service.WithSessionMemoSize(4))
		defer svc.Stop()

		Convey("When the same session is analysed repeatedly", func() {
			for range 5 {
				_, err := svc.FastestLap(ctx, silverstone, "")
				So(err, ShouldBeNil)
			}

			Convey("Then it should be resolved once", func() {
				So(p.gets.Load(), ShouldEqual, int32(1))
				So(p.loads.Load(), ShouldEqual, int32(5))
				So(svc.GetStats()["memoizedSessions"], ShouldEqual, int64(1))
			})
		})

		Convey("When many requests arrive at once", func() {
			var wg sync.WaitGroup
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = svc.BestLaps(ctx, silverstone)
				}()
			}
			wg.Wait()

			Convey("Then the memo should still hold one session", func() {
				So(svc.GetStats()["memoizedSessions"], ShouldEqual, int64(1))
				So(p.gets.Load(), ShouldBeLessThanOrEqualTo, int32(20))
			})
		})

		Convey("When loading laps fails", func() {
			_, err := svc.FastestLap(ctx, silverstone, "")
			So(err, ShouldBeNil)

			p.failLoad.Store(true)
			_, err = svc.FastestLap(ctx, silverstone, "")
			So(errors.Is(err, provider.ErrNetwork), ShouldBeTrue)
			So(service.Outcome(err), ShouldEqual, "upstream")

			Convey("Then the handle should be resolved again afterwards", func() {
				p.failLoad.Store(false)
				_, err := svc.FastestLap(ctx, silverstone, "")
				So(err, ShouldBeNil)
				So(p.gets.Load(), ShouldEqual, int32(2))
			})
		})
	})
}

// slowProvider holds the first session resolution until released, failing
// early only if its own context ends.
type slowProvider struct {
	*countingProvider
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *slowProvider) GetSession(ctx context.Context, id model.SessionID) (provider.Session, error) {
	p.once.Do(func() { close(p.entered) })
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.countingProvider.GetSession(ctx, id)
}

func TestService_SharedResolution(t *testing.T) {
	Convey("Given two requests waiting on one session resolution", t, func() {
		p := &slowProvider{
			countingProvider: newProvider(),
			entered:          make(chan struct{}),
			release:          make(chan struct{}),
		}
		svc := startService(service.WithProvider(p))
		defer svc.Stop()

		first, cancelFirst := context.WithCancel(context.Background())
		defer cancelFirst()
		firstErr := make(chan error, 1)
		go func() {
			_, err := svc.FastestLap(first, silverstone, "")
			firstErr <- err
		}()
		<-p.entered

		type result struct {
			lap model.Lap
			err error
		}
		second := make(chan result, 1)
		go func() {
			l, err := svc.FastestLap(context.Background(), silverstone, "")
			second <- result{l, err}
		}()
		time.Sleep(50 * time.Millisecond)

		Convey("When the first request is canceled", func() {
			cancelFirst()
			err := <-firstErr
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(service.Outcome(err), ShouldEqual, "canceled")
			close(p.release)

			Convey("Then the second request should still be answered", func() {
				res := <-second
				So(res.err, ShouldBeNil)
				So(res.lap.Driver, ShouldEqual, "VER")
				So(p.gets.Load(), ShouldEqual, int32(1))
				So(svc.GetStats()["memoizedSessions"], ShouldEqual, int64(1))
			})
		})
	})
}

func TestOutcome(t *testing.T) {
	Convey("Outcome should classify every error kind", t, func() {
		So(service.Outcome(nil), ShouldEqual, "ok")
		So(service.Outcome(analyzer.ErrEmptyResult), ShouldEqual, "empty_result")
		So(service.Outcome(analyzer.ErrNoSectorData), ShouldEqual, "no_sector_data")
		So(service.Outcome(provider.ErrDecode), ShouldEqual, "upstream")
		So(service.Outcome(service.ErrNotStarted), ShouldEqual, "not_started")
		So(service.Outcome(context.Canceled), ShouldEqual, "canceled")
		So(service.Outcome(errors.New("boom")), ShouldEqual, "error")
	})
}
