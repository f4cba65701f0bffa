package domain

import (
	"errors"
)

var (
	// ErrJobNotFound is returned when a job id has no row in the status store
	ErrJobNotFound = errors.New("job not found")

	// ErrQueryFailed is returned when a store query fails on a live connection
	ErrQueryFailed = errors.New("query failed")

	// ErrTriggerFailed is returned when the ingestion service rejects or
	// never receives a pipeline trigger
	ErrTriggerFailed = errors.New("pipeline trigger failed")

	// ErrMalformedResponse is returned when an upstream service answers
	// with a body the monitor cannot interpret
	ErrMalformedResponse = errors.New("malformed upstream response")
)
