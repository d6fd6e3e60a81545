package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidDivisor is returned when a worker divisor is not positive.
	ErrInvalidDivisor = errors.New("invalid worker divisor: must be positive")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive
	// or the task timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidRate is returned when the request rate is negative.
	ErrInvalidRate = errors.New("invalid request rate: must be non-negative")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retry count: must be non-negative")

	// ErrInvalidBurst is returned when a positive rate has no burst.
	ErrInvalidBurst = errors.New("invalid burst: must be positive when rate is set")
)

var (
	// ErrNoURL is returned when a site recipe has no URL.
	ErrNoURL = errors.New("url is not found in config file")

	// ErrUnknownParser is returned for a parser name that is not registered.
	ErrUnknownParser = errors.New("not a valid parser name")
)

// SiteError attaches the parser name to a site configuration error.
type SiteError struct {
	// Parser is the parser whose recipe is invalid.
	Parser string
	// Err is the underlying sentinel.
	Err error
}

// Error implements error.
func (e *SiteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Parser, e.Err)
}

// Unwrap returns the underlying sentinel so errors.Is works.
func (e *SiteError) Unwrap() error {
	return e.Err
}
