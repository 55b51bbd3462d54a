package cache

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrOpen    = errors.New("open response cache failed")
	ErrCorrupt = errors.New("corrupt cache entry")
)
