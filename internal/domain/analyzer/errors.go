package analyzer

import "errors"

// Sentinel kinds for analysis errors. Callers match them with errors.Is.
var (
	ErrEmptyResult    = errors.New("no valid lap time")
	ErrNoSectorData   = errors.New("no sector data")
	ErrDriverNotFound = errors.New("driver not found")
)
