package tracker

import (
	"errors"
	"fmt"

	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
)

// Validation errors. They are returned before any state change or remote call.
var (
	ErrEmptyResource    = errors.New("resource must not be empty")
	ErrEmptyDescription = errors.New("description must not be empty")
	ErrNoActiveEntry    = errors.New("no active entry")
	ErrEntryActive      = errors.New("an entry is already active")
	ErrNoDaySession     = errors.New("no open day session")
	ErrDayNotEnded      = errors.New("day session has no end time")
)

// Errors raised when state moved on while a remote acknowledgement was pending.
var (
	ErrEntryChanged = errors.New("active entry changed while waiting for the remote")
	ErrDayChanged   = errors.New("day session changed while waiting for the remote")
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("tracker is closed")

// MirrorError reports that an acknowledged notification failed to transmit.
// Local state is left as it was before the call.
type MirrorError struct {
	Kind mirror.Kind
	Err  error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("remote %s not confirmed: %v", e.Kind, e.Err)
}

func (e *MirrorError) Unwrap() error { return e.Err }
