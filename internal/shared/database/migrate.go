package database

import (
	"courtly/internal/bookings"
	"courtly/internal/clubs"
	"courtly/internal/payments"
	"courtly/internal/users"
	"courtly/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&clubs.Club{},
		&clubs.ClubSettings{},
		&clubs.Court{},
		&clubs.OperatingHours{},
		&clubs.PricingRule{},
		&clubs.CourtBlackout{},
		&bookings.Booking{},
		&bookings.BookingPlayer{},
		&bookings.Invite{},
		&waitlist.Entry{},
		&payments.Payment{},
		&payments.Wallet{},
		&payments.WalletTransaction{},
		&payments.Invoice{},
	)
}
