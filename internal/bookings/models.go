package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking is a reservation of one court for one half-open time window.
type Booking struct {
	ID              uuid.UUID   `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClubID          uuid.UUID   `json:"club_id" gorm:"type:uuid;not null;index"`
	CourtID         uuid.UUID   `json:"court_id" gorm:"type:uuid;not null;index:idx_bookings_court_window"`
	BookingType     BookingType `json:"booking_type" gorm:"type:varchar(20);not null"`
	Status          Status      `json:"status" gorm:"type:varchar(12);not null;default:'pending';index"`
	StartDatetime   time.Time   `json:"start_datetime" gorm:"not null;index:idx_bookings_court_window"`
	EndDatetime     time.Time   `json:"end_datetime" gorm:"not null"`
	CreatedByUserID uuid.UUID   `json:"created_by_user_id" gorm:"type:uuid;not null;index"`
	MaxPlayers      int         `json:"max_players" gorm:"not null;default:4"`
	IsOpenGame      bool        `json:"is_open_game" gorm:"not null;default:false"`
	TotalPrice      float64     `json:"total_price" gorm:"not null"`
	Notes           string      `json:"notes,omitempty" gorm:"type:text"`

	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	ReminderSentAt     *time.Time `json:"reminder_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Players []BookingPlayer `json:"players,omitempty" gorm:"foreignKey:BookingID"`
}

// BookingPlayer is one player's stake in a booking. Rows are never deleted;
// payment status records the soft history.
type BookingPlayer struct {
	ID            uuid.UUID           `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID     uuid.UUID           `json:"booking_id" gorm:"type:uuid;not null;uniqueIndex:uq_booking_user"`
	UserID        uuid.UUID           `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uq_booking_user;index"`
	Role          PlayerRole          `json:"role" gorm:"type:varchar(12);not null"`
	PaymentStatus PlayerPaymentStatus `json:"payment_status" gorm:"type:varchar(12);not null;default:'pending'"`
	AmountDue     float64             `json:"amount_due" gorm:"not null"`
	CreatedAt     time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// Invite is a pending invitation to join a booking. No BookingPlayer row is
// created until the invitee accepts.
type Invite struct {
	ID        uuid.UUID    `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID uuid.UUID    `json:"booking_id" gorm:"type:uuid;not null;index"`
	InviterID uuid.UUID    `json:"inviter_id" gorm:"type:uuid;not null"`
	InviteeID uuid.UUID    `json:"invitee_id" gorm:"type:uuid;not null;index"`
	Status    InviteStatus `json:"status" gorm:"type:varchar(12);not null;default:'pending'"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Booking) TableName() string       { return "bookings" }
func (BookingPlayer) TableName() string { return "booking_players" }
func (Invite) TableName() string        { return "booking_invites" }

// PlayerCount returns the number of loaded players.
func (b *Booking) PlayerCount() int {
	return len(b.Players)
}

// HasPlayer reports whether the user already holds a seat on the booking.
func (b *Booking) HasPlayer(userID uuid.UUID) bool {
	for i := range b.Players {
		if b.Players[i].UserID == userID {
			return true
		}
	}
	return false
}

// CreateBookingRequest is the API payload for creating a booking.
type CreateBookingRequest struct {
	ClubID      string     `json:"club_id" binding:"required,uuid"`
	CourtID     string     `json:"court_id" binding:"required,uuid"`
	BookingType string     `json:"booking_type" binding:"required,oneof=regular lesson_individual lesson_group corporate_event tournament"`
	Start       time.Time  `json:"start" binding:"required"`
	End         *time.Time `json:"end,omitempty"`
	MaxPlayers  int        `json:"max_players" binding:"required,min=1,max=16"`
	IsOpenGame  bool       `json:"is_open_game"`
	Notes       string     `json:"notes" binding:"max=2000"`
}

// InviteRequest is the API payload for inviting a player.
type InviteRequest struct {
	InviteeID string `json:"invitee_id" binding:"required,uuid"`
}

// CancelRequest is the API payload for cancelling a booking.
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// DiscountRequest is the API payload for a staff discount on a booking.
type DiscountRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason" binding:"max=500"`
}

// OpenGameQuery filters the open-game listing.
type OpenGameQuery struct {
	Date       string   `form:"date"`
	SkillLevel *float64 `form:"skill_level"`
}

// BookingResponse is the API shape of a booking with its players.
type BookingResponse struct {
	ID          string           `json:"id"`
	ClubID      string           `json:"club_id"`
	CourtID     string           `json:"court_id"`
	BookingType BookingType      `json:"booking_type"`
	Status      Status           `json:"status"`
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	MaxPlayers  int              `json:"max_players"`
	IsOpenGame  bool             `json:"is_open_game"`
	TotalPrice  float64          `json:"total_price"`
	Players     []PlayerResponse `json:"players"`
	CreatedAt   time.Time        `json:"created_at"`
}

// PlayerResponse is the API shape of one player's stake.
type PlayerResponse struct {
	UserID        string              `json:"user_id"`
	Role          PlayerRole          `json:"role"`
	PaymentStatus PlayerPaymentStatus `json:"payment_status"`
	AmountDue     float64             `json:"amount_due"`
}

// ToResponse converts a booking with loaded players into the API shape.
func (b *Booking) ToResponse() *BookingResponse {
	players := make([]PlayerResponse, 0, len(b.Players))
	for i := range b.Players {
		p := &b.Players[i]
		players = append(players, PlayerResponse{
			UserID:        p.UserID.String(),
			Role:          p.Role,
			PaymentStatus: p.PaymentStatus,
			AmountDue:     p.AmountDue,
		})
	}
	return &BookingResponse{
		ID:          b.ID.String(),
		ClubID:      b.ClubID.String(),
		CourtID:     b.CourtID.String(),
		BookingType: b.BookingType,
		Status:      b.Status,
		Start:       b.StartDatetime,
		End:         b.EndDatetime,
		MaxPlayers:  b.MaxPlayers,
		IsOpenGame:  b.IsOpenGame,
		TotalPrice:  b.TotalPrice,
		Players:     players,
		CreatedAt:   b.CreatedAt,
	}
}
