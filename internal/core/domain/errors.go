package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSpaceNotFound indicates no sidecar file exists for a space key.
	ErrSpaceNotFound = errors.New("space not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingCredentials indicates the API URL or token is not
	// configured. Upload commands require both before any remote call.
	ErrMissingCredentials = errors.New("missing API credentials")

	// Collection resolution errors.

	// ErrAmbiguousCollection indicates several remote collections share
	// the space's name and no choice was made. The resolver never picks
	// one silently.
	ErrAmbiguousCollection = errors.New("ambiguous collection name")

	// ErrAbstained indicates the operator declined to choose among
	// ambiguous collections.
	ErrAbstained = errors.New("operator abstained")

	// ErrNoCollection indicates the space has no resolvable collection.
	// This is fatal for the space's upload.
	ErrNoCollection = errors.New("no collection resolved")

	// ErrRateLimitExhausted indicates retries were exhausted while rate
	// limited. Callers record it and continue; it never aborts the run.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")
)
