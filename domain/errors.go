package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal server error")
	// ErrInvalidBound will throw if the requested range is malformed or
	// exceeds the configured maximum
	ErrInvalidBound = errors.New("invalid bound")
	// ErrUnknownDomain will throw if the requested domain key has no
	// configured filter
	ErrUnknownDomain = errors.New("unknown sieve domain")
	// ErrComputationTimeout will throw if an extension exceeds the
	// configured compute deadline
	ErrComputationTimeout = errors.New("computation timed out")
	// ErrCacheMiss will throw if a snapshot lookup finds nothing
	ErrCacheMiss = errors.New("cache miss")
)
