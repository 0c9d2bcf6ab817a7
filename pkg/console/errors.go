package console

import (
	"errors"
	"fmt"
)

// Sentinel errors for user-correctable console failures. None of these
// are retried automatically; every retry is a deliberate user action.
var (
	// ErrNotAuthorized is returned for identities outside the allow
	// list, before any provider exchange is attempted.
	ErrNotAuthorized = errors.New("identity is not authorized")

	// ErrInvalidCredentials is returned when the identity provider
	// rejects an email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidCode is returned when the identity provider rejects a
	// one-time code.
	ErrInvalidCode = errors.New("invalid one-time code")

	// ErrPayloadTooLarge is returned when a file exceeds its configured
	// size cap, before any upload is attempted.
	ErrPayloadTooLarge = errors.New("payload exceeds size cap")

	// ErrTooSoon is returned when a cooldown window has not yet elapsed,
	// before any write is attempted.
	ErrTooSoon = errors.New("cooldown has not elapsed")

	// ErrNotFound is returned by cache lookups and mutations targeting
	// a record that does not exist.
	ErrNotFound = errors.New("record not found")
)

// TransportError wraps a read-path failure against the remote store.
// Read failures degrade silently: the cache is left unchanged and the
// error is reported as non-fatal.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PersistError wraps a write-path failure against the remote store.
// Write failures are surfaced to the caller; the cache is left unmutated.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
