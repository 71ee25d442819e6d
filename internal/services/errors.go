package services

import "errors"

// Stage-local failures in the answering pipeline. Everything except
// ErrEmptyInput is caught internally and converted into "try the next
// fallback stage"; only ErrEmptyInput ever reaches the user as an error.
var (
	ErrEmptyInput            = errors.New("query must not be empty")
	ErrPlannerFormat         = errors.New("planner output not parseable or shape-invalid")
	ErrExecution             = errors.New("query execution failed")
	ErrEmptyResult           = errors.New("query returned no rows")
	ErrSummarizerUnavailable = errors.New("no language model configured")
)
