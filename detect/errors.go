package detect

import (
	"errors"
	"fmt"
)

// ErrMalformedURL means the input failed validation before any extraction
// started. Reported immediately to the caller.
var ErrMalformedURL = errors.New("malformed url")

// ErrClassifierUnavailable means no model bundle is loaded. Fatal for any
// prediction request; never retried.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// PredictionError wraps a vectorization or classifier invocation failure.
// Callers must treat it as "undetermined", never as "legitimate".
type PredictionError struct {
	URL string
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed for %s: %v", e.URL, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }
