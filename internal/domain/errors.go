package domain

import "errors"

var (
	// ErrUnmappableValue is returned when a categorical filter value has no
	// vocabulary match even after loose matching
	ErrUnmappableValue = errors.New("value cannot be mapped to API vocabulary")

	// ErrNoLocation is returned when a search form names no resolvable location
	ErrNoLocation = errors.New("no location provided")

	// ErrFetchFailed is returned when a page fetch exhausts its retry budget
	ErrFetchFailed = errors.New("fetch failed after retries")

	// ErrListingNotFound is returned when the API has no listing for an id
	ErrListingNotFound = errors.New("listing not found")

	// ErrNormalization is returned when a record cannot be made schema-valid
	// within its attempt budget
	ErrNormalization = errors.New("record normalization failed")

	// ErrGenerationFailed is returned when the text-generation capability does
	// not produce the requested structured payload
	ErrGenerationFailed = errors.New("structured generation failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrAPIFailure is returned when a listings API request fails
	ErrAPIFailure = errors.New("listings API request failed")
)
