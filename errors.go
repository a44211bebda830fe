package helpdesksim

import (
	"errors"
	"fmt"
)

// Error taxonomy for the session engine. Callers branch with errors.Is.
var (
	// ErrNotFound means a session or memory record was absent when an
	// operation required it. Never retried automatically.
	ErrNotFound = errors.New("not found")

	// ErrUpstream means the durable store or the response generator did
	// not respond. Recoverable by caller-level retry; no partial state
	// mutation is committed when this is returned.
	ErrUpstream = errors.New("upstream unavailable")

	// ErrValidation means malformed context or out-of-range input,
	// rejected before any state mutation.
	ErrValidation = errors.New("validation failed")
)

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func upstreamf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrUpstream)...)
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
