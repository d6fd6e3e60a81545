package sites

import "errors"

var (
	// ErrStatus is returned when a site answers with a non-2xx status.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrNoListings is returned when a listing page has no matching cards.
	ErrNoListings = errors.New("no listings found")

	// ErrNoDetails is returned when a detail page yields none of the fields.
	ErrNoDetails = errors.New("no house details found")

	// ErrNoCoordinates is returned when a location page has no coordinates.
	ErrNoCoordinates = errors.New("no coordinates found")

	// ErrNoAddress is returned when a prior row has no address to look up.
	ErrNoAddress = errors.New("row has no address")

	// ErrInvalidProxy is returned for an unsupported proxy URL.
	ErrInvalidProxy = errors.New("invalid proxy")
)
