package domain

import "errors"

var (
	// ErrNoRows means the input held no analyzable inventory lines. It is
	// never reported as a clean result.
	ErrNoRows = errors.New("no inventory rows to analyze")

	// ErrSourceUnavailable wraps failures of an export source or store.
	ErrSourceUnavailable = errors.New("source unavailable")

	ErrNotFound = errors.New("not found")

	// ErrRunInProgress is returned when another run holds the period lock.
	ErrRunInProgress = errors.New("analysis already running for period")

	ErrInvalidInput = errors.New("invalid input")
)
