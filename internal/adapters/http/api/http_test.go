package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/perfectlap/internal/adapters/http/api"
	"github.com/okian/perfectlap/internal/adapters/provider"
	service "github.com/okian/perfectlap/internal/app"
	"github.com/okian/perfectlap/internal/domain/analyzer"
	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/internal/domain/types"
	"github.com/okian/perfectlap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWith(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
}

// mockDependencies answers every analysis with fixed data or err.
type mockDependencies struct {
	err        error
	lastID     model.SessionID
	lastDriver string
}

func (m *mockDependencies) FastestLap(_ context.Context, id model.SessionID, driver string) (model.Lap, error) {
	m.lastID, m.lastDriver = id, driver
	if m.err != nil {
		return model.Lap{}, m.err
	}
	return model.Lap{
		Driver:    "VER",
		LapNumber: 2,
		LapTime:   model.Seconds(89.5),
		Sectors:   [3]model.Duration{model.Seconds(29.75), model.Null, model.Seconds(29.75)},
	}, nil
}

func (m *mockDependencies) OptimalLap(_ context.Context, id model.SessionID, driver string) (model.OptimalLap, error) {
	m.lastID, m.lastDriver = id, driver
	if m.err != nil {
		return model.OptimalLap{}, m.err
	}
	return model.OptimalLap{
		Time:    89250 * time.Millisecond,
		Sectors: [3]model.Duration{model.Seconds(29.75), model.Seconds(29.75), model.Seconds(29.75)},
	}, nil
}

func (m *mockDependencies) BestLaps(_ context.Context, id model.SessionID) ([]model.BestLap, error) {
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	return []model.BestLap{
		{Position: 1, Driver: "VER", LapTime: 89500 * time.Millisecond},
		{Position: 2, Driver: "HAM", LapTime: 90 * time.Second},
	}, nil
}

func (m *mockDependencies) Compare(_ context.Context, id model.SessionID, a, b string) (model.ComparisonRecord, error) {
	m.lastID, m.lastDriver = id, a+","+b
	if m.err != nil {
		return model.ComparisonRecord{}, m.err
	}
	return model.ComparisonRecord{
		A:     model.DriverLapStats{Driver: a, LapNumber: 2, LapTime: model.Seconds(89.5)},
		B:     model.DriverLapStats{Driver: b, LapNumber: 1, LapTime: model.Seconds(90)},
		Delta: -500 * time.Millisecond,
	}, nil
}

func (m *mockDependencies) Summary(_ context.Context, id model.SessionID, driver string) (model.LapSummary, error) {
	m.lastID, m.lastDriver = id, driver
	if m.err != nil {
		return model.LapSummary{}, m.err
	}
	return model.LapSummary{
		Driver:  "VER",
		Actual:  model.Lap{Driver: "VER", LapNumber: 2, LapTime: model.Seconds(89.5)},
		Optimal: model.OptimalLap{Time: 89250 * time.Millisecond},
		Gain:    250 * time.Millisecond,
	}, nil
}

func (m *mockDependencies) Telemetry(_ context.Context, id model.SessionID, driver string) (model.Lap, []model.TelemetrySample, error) {
	m.lastID, m.lastDriver = id, driver
	if m.err != nil {
		return model.Lap{}, nil, m.err
	}
	return model.Lap{Driver: "VER", LapNumber: 2, LapTime: model.Seconds(89.5)},
		[]model.TelemetrySample{{X: 1, Y: 2, Distance: 0, Speed: 280}}, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

const session = "year=2023&event=Abu+Dhabi&session=q"

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}).
		Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) types.ErrorResponse {
	var body types.ErrorResponse
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then the health endpoint should expose metrics", func() {
			w := get(mux, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "perfectlap_")
		})

		Convey("Then the stats endpoint should return service stats", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then every response should carry a request id", func() {
			w := get(mux, "/stats")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("Then a client request id should be echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/fastest?year=2023", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "trace-42")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "trace-42")
			So(decodeError(w).RequestID, ShouldEqual, "trace-42")
		})

		Convey("Then non-GET methods should be refused", func() {
			req := httptest.NewRequest(http.MethodPost, "/fastest?"+session, strings.NewReader("{}"))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
		})

		Convey("And nil mux should panic", func() {
			So(func() {
				api.NewServer(&mockDependencies{}, &mockStatsProvider{}).Register(context.Background(), nil)
			}, ShouldPanic)
		})
	})
}

func TestHandlers(t *testing.T) {
	Convey("Given a server over fixed analysis results", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When requesting the fastest lap", func() {
			w := get(mux, "/fastest?"+session+"&driver=ver")
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.FastestResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)

			Convey("Then the session and driver should be normalised", func() {
				So(deps.lastID, ShouldResemble, model.SessionID{Year: 2023, Event: "Abu Dhabi", Type: model.Qualifying})
				So(deps.lastDriver, ShouldEqual, "VER")
				So(body.Session, ShouldResemble, types.Session{Year: 2023, Event: "Abu Dhabi", Session: "Q"})
			})

			Convey("Then times should be seconds with null gaps", func() {
				So(*body.Lap.LapTime, ShouldEqual, 89.5)
				So(body.Lap.Sectors[1], ShouldBeNil)
				So(w.Body.String(), ShouldContainSubstring, `"sectors":[29.75,null,29.75]`)
			})
		})

		Convey("When requesting the fastest lap of the field", func() {
			w := get(mux, "/fastest?"+session)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastDriver, ShouldEqual, "")
			So(w.Body.String(), ShouldNotContainSubstring, `"driver":""`)
		})

		Convey("When requesting the optimal lap", func() {
			w := get(mux, "/optimal?"+session)
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.OptimalResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Optimal.Time, ShouldEqual, 89.25)
		})

		Convey("When comparing drivers", func() {
			w := get(mux, "/compare?"+session+"&a=ver&b=ham")
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.CompareResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(deps.lastDriver, ShouldEqual, "VER,HAM")
			So(body.Delta, ShouldEqual, -0.5)
			So(body.Faster, ShouldEqual, "VER")
		})

		Convey("When comparing without a second driver", func() {
			w := get(mux, "/compare?"+session+"&a=VER")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			body := decodeError(w)
			So(body.Code, ShouldEqual, "bad_request")
			So(body.Error, ShouldContainSubstring, "missing b")
		})

		Convey("When requesting a summary", func() {
			w := get(mux, "/summary?"+session+"&driver=VER")
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.SummaryResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Gain, ShouldEqual, 0.25)
			So(body.Optimal.Time, ShouldEqual, 89.25)
		})

		Convey("When requesting the best-lap ranking", func() {
			w := get(mux, "/best-laps?"+session)
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.BestLapsResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Laps, ShouldHaveLength, 2)
			So(body.Laps[1], ShouldResemble, types.BestLap{Position: 2, Driver: "HAM", LapTime: 90})
		})

		Convey("When requesting telemetry", func() {
			w := get(mux, "/telemetry?"+session+"&driver=VER")
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.TelemetryResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.LapNumber, ShouldEqual, 2)
			So(body.Samples, ShouldHaveLength, 1)
		})
	})
}

func TestBadRequests(t *testing.T) {
	Convey("Given a server", t, func() {
		mux := newMux(&mockDependencies{})

		cases := []struct {
			name  string
			query string
			want  string
		}{
			{"missing year", "event=Monaco&session=Q", "missing year"},
			{"non-numeric year", "year=abc&event=Monaco&session=Q", "invalid year"},
			{"year before the championship", "year=1901&event=Monaco&session=Q", "invalid session id"},
			{"missing event", "year=2024&session=Q", "missing event"},
			{"missing session", "year=2024&event=Monaco", "missing session"},
			{"unknown session", "year=2024&event=Monaco&session=sprint", "invalid session type"},
		}
		for _, tc := range cases {
			Convey("When "+tc.name, func() {
				w := get(mux, "/fastest?"+tc.query)

				Convey("Then it should be a bad request", func() {
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					body := decodeError(w)
					So(body.Code, ShouldEqual, "bad_request")
					So(body.Error, ShouldContainSubstring, tc.want)
					So(body.RequestID, ShouldNotBeEmpty)
				})
			})
		}
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given a server whose analyses fail", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("%w: XYZ", analyzer.ErrDriverNotFound), http.StatusNotFound, "not_found"},
			{fmt.Errorf("%w: no event", provider.ErrSessionNotFound), http.StatusNotFound, "not_found"},
			{analyzer.ErrEmptyResult, http.StatusUnprocessableEntity, "no_data"},
			{analyzer.ErrNoSectorData, http.StatusUnprocessableEntity, "no_data"},
			{provider.ErrNoTelemetry, http.StatusUnprocessableEntity, "no_data"},
			{fmt.Errorf("%w: laps: upstream status 503", provider.ErrNetwork), http.StatusBadGateway, "upstream_error"},
			{provider.ErrDecode, http.StatusBadGateway, "upstream_error"},
			{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}
		for _, tc := range cases {
			Convey("When the failure is "+tc.err.Error(), func() {
				mux := newMux(&mockDependencies{err: tc.err})

				for _, path := range []string{"/fastest", "/optimal", "/compare", "/summary", "/best-laps", "/telemetry"} {
					w := get(mux, path+"?"+session+"&a=VER&b=HAM")
					So(w.Code, ShouldEqual, tc.status)
					So(decodeError(w).Code, ShouldEqual, tc.code)
				}
			})
		}

		Convey("Then internal errors should not leak their cause", func() {
			mux := newMux(&mockDependencies{err: errors.New("secret detail")})
			w := get(mux, "/fastest?"+session)
			So(w.Body.String(), ShouldNotContainSubstring, "secret detail")
		})

		Convey("Then other errors should name the operation and cause", func() {
			mux := newMux(&mockDependencies{err: fmt.Errorf("%w: XYZ", analyzer.ErrDriverNotFound)})
			w := get(mux, "/fastest?"+session)
			So(decodeError(w).Error, ShouldEqual, "api.fastest: driver not found: XYZ")
		})
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given the API over a real service and a static session", t, func() {
		id := model.SessionID{Year: 2021, Event: "Abu Dhabi Grand Prix", Type: model.Qualifying}
		laps := model.LapSet{
			{Driver: "VER", LapNumber: 1, LapTime: model.Seconds(82.109),
				Sectors: [3]model.Duration{model.Seconds(17.1), model.Seconds(35.2), model.Seconds(29.809)}},
			{Driver: "HAM", LapNumber: 1, LapTime: model.Seconds(82.480),
				Sectors: [3]model.Duration{model.Seconds(17.0), model.Seconds(35.5), model.Seconds(29.98)}},
		}
		svc := service.New(service.WithProvider(provider.NewStatic().AddSession(id, laps)))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		q := "year=2021&event=Abu+Dhabi+Grand+Prix&session=Q"

		Convey("When comparing the two drivers", func() {
			w := get(mux, "/compare?"+q+"&a=VER&b=HAM")
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.CompareResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(types.Duration(body.Delta), ShouldEqual, -371*time.Millisecond)
			So(body.Faster, ShouldEqual, "VER")
		})

		Convey("When asking for an absent driver", func() {
			w := get(mux, "/compare?"+q+"&a=VER&b=BOT")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Error, ShouldContainSubstring, "BOT")
		})

		Convey("When asking for the field optimal lap", func() {
			w := get(mux, "/optimal?"+q)
			So(w.Code, ShouldEqual, http.StatusOK)

			var body types.OptimalResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(types.Duration(body.Optimal.Time), ShouldEqual, 82009*time.Millisecond)
		})

		Convey("When the stats are read after a request", func() {
			_ = get(mux, "/best-laps?"+q)
			w := get(mux, "/stats")
			So(w.Body.String(), ShouldContainSubstring, `"memoizedSessions":1`)
		})
	})
}
