package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrFeedNotLoaded         = errors.New("feed not loaded")
	ErrFeedInvalid           = errors.New("invalid gtfs feed")
	ErrImportInProgress      = errors.New("feed import already in progress")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
