package models

import "errors"

// Error taxonomy for the whole pipeline. Callers classify failures with
// errors.Is against these sentinels; wrapped causes carry the detail.
var (
	// ErrAuth means the API credential was rejected. Fatal, never retried.
	ErrAuth = errors.New("credential rejected")

	// ErrNotFound means the topic does not exist. Fatal, never retried.
	ErrNotFound = errors.New("topic not found")

	// ErrTransient covers network failures, 5xx responses, and rate-limit
	// exhaustion. Retried locally; fatal only after the retry budget.
	ErrTransient = errors.New("transient upstream failure")

	// ErrConfig means invalid configuration, detected before any network call.
	ErrConfig = errors.New("invalid configuration")

	// ErrAnalysis means the analysis capability failed or returned empty
	// output after its retry budget.
	ErrAnalysis = errors.New("analysis failed")

	// ErrWrite means the report could not be written. Not retried.
	ErrWrite = errors.New("report write failed")
)
