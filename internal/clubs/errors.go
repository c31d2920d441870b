package clubs

import "errors"

var (
	// ErrNotFound is returned when a club, court or settings row does not exist.
	ErrNotFound = errors.New("club resource not found")

	// ErrInvalidSettings is returned when staff submit settings that violate a
	// cross-field invariant.
	ErrInvalidSettings = errors.New("invalid club settings")

	// ErrNoOperatingHours is returned when a club has no operating window
	// configured for the requested day. Callers surface this instead of
	// guessing a default window.
	ErrNoOperatingHours = errors.New("no operating hours configured for day")

	// ErrInvalidHours is returned when an operating window has close <= open.
	ErrInvalidHours = errors.New("invalid operating hours")
)
