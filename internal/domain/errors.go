package domain

import "errors"

// ErrInvalidReading marks a malformed or out-of-range reading rejected at
// ingestion. Insufficient data for a given fusion step is never an error;
// those operations return empty or partial results instead.
var ErrInvalidReading = errors.New("invalid reading")
