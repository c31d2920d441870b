package bookings

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a booking or invite does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrSlotConflict is returned when the requested window overlaps an
	// existing pending/confirmed booking or a blackout on the same court.
	ErrSlotConflict = errors.New("slot conflict")

	// ErrPolicyViolation is returned when a club rule (advance window, notice
	// period, weekly cap) rejects the request. Wrap with the rule name.
	ErrPolicyViolation = errors.New("club policy violation")

	// ErrGameFull is returned when an open game already has max_players.
	ErrGameFull = errors.New("open game is full")

	// ErrSkillMismatch is returned when a joining player's skill level is too
	// far from the current players' average.
	ErrSkillMismatch = errors.New("skill level outside allowed range")

	// ErrNotOpenGame is returned when joining a booking that is not an open game.
	ErrNotOpenGame = errors.New("booking is not an open game")

	// ErrWaitlistDisabled is returned when the club has switched the waitlist off.
	ErrWaitlistDisabled = errors.New("waitlist disabled for club")

	// ErrAlreadyJoined is returned when a user is already a player on the booking.
	ErrAlreadyJoined = errors.New("user already joined booking")

	// ErrInvalidTransition is returned for operations on a booking whose state
	// forbids them. Never auto-corrected.
	ErrInvalidTransition = errors.New("invalid booking state transition")

	// ErrNotAuthorised is returned when the actor is neither the creator, a
	// player, nor staff.
	ErrNotAuthorised = errors.New("actor not authorised for booking")

	// ErrSplitInvariant signals an internal defect: player shares no longer
	// sum to the booking total. Surfaced loudly, never swallowed.
	ErrSplitInvariant = errors.New("player amounts do not sum to booking total")
)

// PolicyError wraps ErrPolicyViolation with the specific rule that failed.
func PolicyError(rule, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrPolicyViolation, rule, detail)
}
