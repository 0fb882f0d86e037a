package service

import "errors"

var (
	// ErrNotSignedIn means the caller has no identity. Creating and
	// joining sessions both require one.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrCreateTimeout means session creation exceeded its wall-clock
	// bound before the store answered.
	ErrCreateTimeout = errors.New("session creation timed out")

	ErrCodeNotFound  = errors.New("join code not found")
	ErrCodeExpired   = errors.New("join code expired")
	ErrMalformedCode = errors.New("join code record is malformed")

	// ErrCodeExhausted means every allocation attempt collided. The
	// user can simply retry; it is not fatal.
	ErrCodeExhausted = errors.New("could not allocate a unique join code")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session has ended")
	ErrNotOwner        = errors.New("caller does not own this session")
)
