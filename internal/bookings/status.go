package bookings

// Status is the booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// IsValid checks if the booking status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// IsActive reports whether the booking still occupies its slot. Pending and
// confirmed bookings both block the court.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanBeCancelled reports whether cancellation is a legal transition.
func (s Status) CanBeCancelled() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo checks the lifecycle state machine:
// pending → confirmed → completed, pending/confirmed → cancelled.
func (s Status) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
		StatusCancelled: {},
		StatusCompleted: {},
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
