package domain

import "errors"

// Error taxonomy shared by the catalog client, the ingestion pipeline and
// the HTTP layer.
var (
	// ErrNotFound: the catalog reported failure, the record is absent, or
	// the call timed out.
	ErrNotFound = errors.New("not found")
	// ErrValidation: a malformed client-supplied parameter.
	ErrValidation = errors.New("invalid input")
	// ErrUpstreamMalformed: the catalog claimed success but a required
	// field is missing or unparseable.
	ErrUpstreamMalformed = errors.New("malformed upstream record")
	// ErrUpstreamUnavailable: the catalog could not be reached at all.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
