package provider

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/perfectlap/internal/adapters/cache"
	"github.com/okian/perfectlap/pkg/logger"
)

// Option applies a configuration option to the OpenF1 provider.
type Option func(*OpenF1)

// WithBaseURL sets the API root, e.g. "https://api.openf1.org".
func WithBaseURL(baseURL string) Option {
	return func(p *OpenF1) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *OpenF1) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout bounds every upstream request.
func WithTimeout(d time.Duration) Option {
	return func(p *OpenF1) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithCache routes every request through the given response cache.
func WithCache(c *cache.Store) Option {
	return func(p *OpenF1) {
		p.cache = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *OpenF1) {
		if l != nil {
			p.logger = l
		}
	}
}
