package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/perfectlap/internal/adapters/cache"
	"github.com/okian/perfectlap/internal/domain/model"
	"github.com/okian/perfectlap/pkg/logger"
	"github.com/okian/perfectlap/pkg/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Default provider configuration constants.
const (
	defaultBaseURL = "https://api.openf1.org"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 64 << 20
	isoMillis      = "2006-01-02T15:04:05.000"
)

// OpenF1 loads sessions from an OpenF1-compatible REST API. Every GET is
// looked up in the response cache first and stored there on success.
type OpenF1 struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	cache   *cache.Store
	group   singleflight.Group
	logger  logger.Logger
}

// NewOpenF1 creates a provider with configuration options.
func NewOpenF1(opts ...Option) *OpenF1 {
	p := &OpenF1{
		baseURL: defaultBaseURL,
		client:  &http.Client{},
		timeout: defaultTimeout,
		logger:  logger.Get().Named("openf1"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetSession implements Provider.
func (p *OpenF1) GetSession(ctx context.Context, id model.SessionID) (Session, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var meetings []apiMeeting
	q := url.Values{"year": {strconv.Itoa(id.Year)}}
	if err := p.getJSON(ctx, pathMeetings, q.Encode(), &meetings); err != nil {
		return nil, err
	}
	meeting, ok := matchMeeting(meetings, id.Event)
	if !ok {
		return nil, fmt.Errorf("%w: no event %q in %d", ErrSessionNotFound, id.Event, id.Year)
	}

	var sessions []apiSession
	q = url.Values{
		"meeting_key":  {strconv.Itoa(meeting.MeetingKey)},
		"session_name": {sessionNames[id.Type]},
	}
	if err := p.getJSON(ctx, pathSessions, q.Encode(), &sessions); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: %s has no %s session", ErrSessionNotFound, meeting.MeetingName, id.Type)
	}

	p.logger.Debug(ctx, "resolved session",
		logger.String("session", id.String()),
		logger.String("meeting", meeting.MeetingName),
		logger.Int("sessionKey", sessions[0].SessionKey),
	)
	return &openF1Session{
		p:   p,
		id:  id,
		key: sessions[0].SessionKey,
	}, nil
}

// matchMeeting prefers an exact meeting name, then the earliest meeting whose
// name, country or location contains the query.
func matchMeeting(meetings []apiMeeting, event string) (apiMeeting, bool) {
	query := strings.ToLower(strings.TrimSpace(event))
	for _, m := range meetings {
		if strings.ToLower(m.MeetingName) == query {
			return m, true
		}
	}

	var candidates []apiMeeting
	for _, m := range meetings {
		for _, field := range []string{m.MeetingName, m.CountryName, m.Location} {
			if field != "" && strings.Contains(strings.ToLower(field), query) {
				candidates = append(candidates, m)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return apiMeeting{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DateStart.Before(candidates[j].DateStart.Time)
	})
	return candidates[0], true
}

// getJSON fetches path?query through the cache and decodes the body into out.
func (p *OpenF1) getJSON(ctx context.Context, path, query string, out any) error {
	body, err := p.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.RecordErrorByComponent("provider", "decode")
		return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return nil
}

func (p *OpenF1) get(ctx context.Context, path, query string) ([]byte, error) {
	key := path + "?" + query
	endpoint := strings.TrimPrefix(path, "/v1/")

	if body, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Warn(ctx, "cache read failed", logger.String("key", key), logger.Error(err))
	} else if ok {
		metrics.RecordProviderRequest(endpoint, "cache_hit")
		return body, nil
	}

	// Identical concurrent requests share one upstream round trip. The fetch
	// is bounded by the provider timeout, not by whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		return p.fetch(shared, endpoint, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (p *OpenF1) fetch(ctx context.Context, endpoint, key string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.RecordProviderLatency(endpoint, float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+key, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(endpoint, "error")
		metrics.RecordErrorByComponent("provider", "network")
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// OpenF1 answers 404 for filters that match nothing.
	if resp.StatusCode == http.StatusNotFound {
		metrics.RecordProviderRequest(endpoint, "ok")
		return []byte("[]"), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordProviderRequest(endpoint, "error")
		metrics.RecordErrorByComponent("provider", "status_"+strconv.Itoa(resp.StatusCode))
		return nil, fmt.Errorf("%w: %s: upstream status %d", ErrNetwork, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordProviderRequest(endpoint, "error")
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, endpoint, err)
	}
	metrics.RecordProviderRequest(endpoint, "ok")

	if err := p.cache.Put(ctx, key, body); err != nil {
		p.logger.Warn(ctx, "cache write failed", logger.String("key", key), logger.Error(err))
	}
	p.logger.Debug(ctx, "fetched",
		logger.String("endpoint", endpoint),
		logger.Int("bytes", len(body)),
		logger.Duration("took", time.Since(start)),
	)
	return body, nil
}

// openF1Session is a resolved session. Laps are loaded once per handle.
type openF1Session struct {
	p   *OpenF1
	id  model.SessionID
	key int

	mu      sync.Mutex
	laps    model.LapSet
	numbers map[string]int // acronym -> driver number
}

func (s *openF1Session) ID() model.SessionID { return s.id }

func (s *openF1Session) LoadLaps(ctx context.Context) (model.LapSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.laps != nil {
		return slices.Clone(s.laps), nil
	}

	var (
		drivers []apiDriver
		laps    []apiLap
	)
	q := url.Values{"session_key": {strconv.Itoa(s.key)}}.Encode()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.p.getJSON(gctx, pathDrivers, q, &drivers) })
	g.Go(func() error { return s.p.getJSON(gctx, pathLaps, q, &laps) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acronyms := make(map[int]string, len(drivers))
	numbers := make(map[string]int, len(drivers))
	for _, d := range drivers {
		code := model.NormalizeDriver(d.NameAcronym)
		if code == "" {
			code = strconv.Itoa(d.DriverNumber)
		}
		acronyms[d.DriverNumber] = code
		numbers[code] = d.DriverNumber
	}

	out := make(model.LapSet, 0, len(laps))
	for _, l := range laps {
		code, ok := acronyms[l.DriverNumber]
		if !ok {
			code = strconv.Itoa(l.DriverNumber)
			numbers[code] = l.DriverNumber
		}
		out = append(out, l.toModel(code))
	}

	s.laps = out
	s.numbers = numbers
	return slices.Clone(s.laps), nil
}

func (s *openF1Session) LoadTelemetry(ctx context.Context, lap model.Lap) ([]model.TelemetrySample, error) {
	if _, err := s.LoadLaps(ctx); err != nil {
		return nil, err
	}
	code := model.NormalizeDriver(lap.Driver)
	s.mu.Lock()
	number, ok := s.numbers[code]
	s.mu.Unlock()
	if !ok || !lap.LapTime.Valid || lap.StartedAt.IsZero() {
		return nil, fmt.Errorf("%w: %s lap %d", ErrNoTelemetry, code, lap.LapNumber)
	}

	from := lap.StartedAt
	to := lap.StartedAt.Add(lap.LapTime.D)
	q := fmt.Sprintf("session_key=%d&driver_number=%d&date>=%s&date<=%s",
		s.key, number, url.QueryEscape(from.Format(isoMillis)), url.QueryEscape(to.Format(isoMillis)))

	var (
		locations []apiLocation
		carData   []apiCarData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.p.getJSON(gctx, pathLocation, q, &locations) })
	g.Go(func() error { return s.p.getJSON(gctx, pathCarData, q, &carData) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	samples := buildTelemetry(locations, carData, from, to)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s lap %d", ErrNoTelemetry, code, lap.LapNumber)
	}
	return samples, nil
}
