package memo

const defaultMaxSize = 16

type config struct {
	maxSize int
}

// Option applies a configuration option to a Memo.
type Option func(*config)

// WithMaxSize sets the maximum number of entries to keep.
// If maxSize > 0: bounded mode, oldest entries are evicted first.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(c *config) {
		c.maxSize = maxSize
	}
}
