package bookings

// BookingType distinguishes how a court reservation was made and which
// duration rules apply to it.
type BookingType string

const (
	TypeRegular          BookingType = "regular"
	TypeLessonIndividual BookingType = "lesson_individual"
	TypeLessonGroup      BookingType = "lesson_group"
	TypeCorporateEvent   BookingType = "corporate_event"
	TypeTournament       BookingType = "tournament"
)

// IsValid checks if the booking type is a known value.
func (t BookingType) IsValid() bool {
	switch t {
	case TypeRegular, TypeLessonIndividual, TypeLessonGroup, TypeCorporateEvent, TypeTournament:
		return true
	}
	return false
}

func (t BookingType) String() string {
	return string(t)
}

// AllowsCustomDuration reports whether the booking may deviate from the
// club's configured slot duration. Only corporate events and tournaments may.
func (t BookingType) AllowsCustomDuration() bool {
	return t == TypeCorporateEvent || t == TypeTournament
}

// PlayerRole distinguishes the organiser from joined players.
type PlayerRole string

const (
	RoleOrganiser PlayerRole = "organiser"
	RolePlayer    PlayerRole = "player"
)

// IsValid checks if the role is a known value.
func (r PlayerRole) IsValid() bool {
	return r == RoleOrganiser || r == RolePlayer
}

// PlayerPaymentStatus tracks an individual player's share of the booking.
type PlayerPaymentStatus string

const (
	PaymentPending  PlayerPaymentStatus = "pending"
	PaymentPaid     PlayerPaymentStatus = "paid"
	PaymentRefunded PlayerPaymentStatus = "refunded"
)

// IsValid checks if the payment status is a known value.
func (p PlayerPaymentStatus) IsValid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// InviteStatus tracks a pending invite's lifecycle.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)
