package lapclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/perfectlap/internal/domain/types"
)

// Response aliases keep callers independent of the wire package.
type (
	SummaryResult = types.SummaryResponse
	CompareResult = types.CompareResponse
	RankingResult = types.BestLapsResponse
)

// ErrUnhealthy is returned when the service health check fails.
var ErrUnhealthy = errors.New("service unhealthy")

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%d %s: %s (request %s)", e.Status, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls the lap statistics API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Summary fetches the actual-versus-optimal summary of driver.
func (c *Client) Summary(ctx context.Context, q Query, driver string) (SummaryResult, error) {
	var out SummaryResult
	v := q.values()
	if driver != "" {
		v.Set("driver", driver)
	}
	return out, c.get(ctx, "/summary", v, &out)
}

// Compare fetches the comparison of drivers a and b.
func (c *Client) Compare(ctx context.Context, q Query, a, b string) (CompareResult, error) {
	var out CompareResult
	v := q.values()
	v.Set("a", a)
	v.Set("b", b)
	return out, c.get(ctx, "/compare", v, &out)
}

// BestLaps fetches the best-lap ranking.
func (c *Client) BestLaps(ctx context.Context, q Query) (RankingResult, error) {
	var out RankingResult
	return out, c.get(ctx, "/best-laps", q.values(), &out)
}

func (q Query) values() url.Values {
	return url.Values{
		"year":    {strconv.Itoa(q.Year)},
		"event":   {q.Event},
		"session": {q.Session},
	}
}

func (c *Client) get(ctx context.Context, path string, v url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+v.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var e types.ErrorResponse
		if jsonErr := json.Unmarshal(body, &e); jsonErr != nil || e.Code == "" {
			return &APIError{Status: resp.StatusCode, Code: "unknown", Message: strings.TrimSpace(string(body))}
		}
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error, RequestID: e.RequestID}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", path, err)
	}
	return nil
}
