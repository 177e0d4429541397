package domain

import "errors"

// Sentinel errors returned by the tracking engine.
// None of them is fatal: callers degrade to an empty or default state.
var (
	// ErrInvalidDate is returned for an unparseable or future LMP date
	ErrInvalidDate = errors.New("invalid date")

	// ErrCorruptPersistedState marks stored JSON that failed to parse.
	// The engine recovers locally by resetting the collection; it is only logged.
	ErrCorruptPersistedState = errors.New("corrupt persisted state")

	// ErrNoActiveSession is returned when tap/finish/stop is called without a matching start
	ErrNoActiveSession = errors.New("no active session")

	// ErrClearNotConfirmed is returned when a destructive clear was not confirmed by the caller
	ErrClearNotConfirmed = errors.New("clear requires explicit confirmation")

	ErrUnknownMilestone = errors.New("unknown milestone")
	ErrUnknownBagItem   = errors.New("unknown hospital bag item")
	ErrInvalidVitals    = errors.New("invalid vitals")
)
