package lapclient

import "time"

// Config holds configuration for one lapcheck run.
type Config struct {
	BaseURL string        // Base URL of the service
	Year    int           // Season
	Event   string        // Event name or fragment
	Session string        // FP1, FP2, FP3, Q or R
	Driver  string        // Driver for the summary; empty means the whole field
	A       string        // First driver of the comparison
	B       string        // Second driver of the comparison
	Ranking bool          // Print the best-lap ranking
	Timeout time.Duration // HTTP request timeout
	Color   bool          // Colour the output
	Verbose bool          // Enable verbose logging
}

// Query identifies the session every request is about.
type Query struct {
	Year    int
	Event   string
	Session string
}

// Query returns the session part of the configuration.
func (c *Config) Query() Query {
	return Query{Year: c.Year, Event: c.Event, Session: c.Session}
}

// Report collects the responses of one run.
type Report struct {
	Summary *SummaryResult
	Compare *CompareResult
	Ranking *RankingResult
	Elapsed time.Duration
}
