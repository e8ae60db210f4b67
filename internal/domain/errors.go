package domain

import "errors"

// Error taxonomy for the service. Callers classify failures with errors.Is
// and map kinds to transport status codes; wrapped messages carry the
// human-readable reason.
var (
	// ErrValidation indicates malformed input. Not retryable.
	ErrValidation = errors.New("validation failed")

	// ErrBackpressure indicates the ingestion queue is full. Retry later
	// with backoff.
	ErrBackpressure = errors.New("system overloaded")

	// ErrTransientIngest indicates a temporary ingestion failure. Retried
	// internally up to the configured maximum and never surfaced unless
	// retries are exhausted.
	ErrTransientIngest = errors.New("transient ingestion failure")

	// ErrInvalidState indicates the operation is not valid for the entity's
	// current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorpusUnavailable indicates no corpus snapshot exists yet.
	ErrCorpusUnavailable = errors.New("corpus unavailable")

	// ErrAnalysis indicates the comparison input is unusable.
	ErrAnalysis = errors.New("analysis failed")
)
