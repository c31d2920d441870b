package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"courtly/internal/schedule"
)

type Repository interface {
	// Slot reservation. Conflict check and insert run in one transaction so
	// two concurrent creates for overlapping windows cannot both succeed.
	CreateBookingChecked(ctx context.Context, booking *Booking, organiser *BookingPlayer, blackouts []schedule.Interval) error

	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetPlayers(ctx context.Context, bookingID uuid.UUID) ([]BookingPlayer, error)

	// TransitionStatus is a compare-and-swap on the lifecycle state: it only
	// writes when the row is still in `from`, which makes sweep entry points
	// idempotent under replayed timer firings.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, updates map[string]interface{}) (bool, error)

	// AddPlayerChecked locks the booking row, enforces capacity, inserts the
	// player and re-splits amount_due across all current players in one
	// transaction. With requireOpen set it rejects non-open bookings (the
	// joinOpenGame path); invite acceptance passes false. Returns the updated
	// booking and whether the join pushed an open game over its quorum.
	AddPlayerChecked(ctx context.Context, bookingID uuid.UUID, player *BookingPlayer, minPlayersToConfirm int, requireOpen bool) (*Booking, bool, error)

	// SetPlayerPaymentStatus flips one player's payment status; returns false
	// when the row was already in the target state (idempotent replay).
	SetPlayerPaymentStatus(ctx context.Context, bookingID, userID uuid.UUID, status PlayerPaymentStatus) (bool, error)

	// ApplyDiscount reduces the booking total under lock and re-splits the
	// remaining balance across unpaid players. Paid shares are settled money
	// and stay untouched. The note is appended to the booking notes.
	ApplyDiscount(ctx context.Context, bookingID uuid.UUID, amount float64, note string) (*Booking, error)
	AllPlayersPaid(ctx context.Context, bookingID uuid.UUID) (bool, error)

	CountActiveInWeek(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time) (int64, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, upcomingOnly bool, now time.Time) ([]Booking, error)

	// BusyIntervals feeds the availability engine: active bookings on a court
	// overlapping [from, to).
	BusyIntervals(ctx context.Context, courtID uuid.UUID, from, to time.Time) ([]schedule.Interval, error)
	OverlappingBookingIDs(ctx context.Context, courtID uuid.UUID, start, end time.Time) ([]uuid.UUID, error)

	ListOpenGames(ctx context.Context, clubID uuid.UUID, from, to *time.Time) ([]Booking, error)
	ListPendingOpenGames(ctx context.Context) ([]Booking, error)
	ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]Booking, error)
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]Booking, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateInvite(ctx context.Context, invite *Invite) error
	GetInvite(ctx context.Context, id uuid.UUID) (*Invite, error)
	UpdateInviteStatus(ctx context.Context, id uuid.UUID, from, to InviteStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBookingChecked(ctx context.Context, booking *Booking, organiser *BookingPlayer, blackouts []schedule.Interval) error {
	for _, b := range blackouts {
		if schedule.Overlaps(booking.StartDatetime, booking.EndDatetime, b.Start, b.End) {
			return fmt.Errorf("%w: window overlaps a court blackout", ErrSlotConflict)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock any active booking overlapping the window. The lock serializes
		// concurrent creates on the same court; the exclusion constraint on
		// (court_id, window) is the backstop if two inserts slip past.
		var conflicting []Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("court_id = ?", booking.CourtID).
			Where("status IN ?", []Status{StatusPending, StatusConfirmed}).
			Where("start_datetime < ? AND end_datetime > ?", booking.EndDatetime, booking.StartDatetime).
			Find(&conflicting).Error
		if err != nil {
			return fmt.Errorf("failed to lock conflicting bookings: %w", err)
		}
		if len(conflicting) > 0 {
			ids := make([]string, len(conflicting))
			for i := range conflicting {
				ids[i] = conflicting[i].ID.String()
			}
			return fmt.Errorf("%w: overlapping bookings %s", ErrSlotConflict, strings.Join(ids, ", "))
		}

		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		organiser.BookingID = booking.ID
		if err := tx.Create(organiser).Error; err != nil {
			return fmt.Errorf("failed to create organiser player: %w", err)
		}
		return nil
	})

	if err != nil && isExclusionViolation(err) {
		return fmt.Errorf("%w: window already booked", ErrSlotConflict)
	}
	return err
}

// isExclusionViolation detects the Postgres exclusion-constraint error
// (SQLSTATE 23P01) raised when two inserts race past the row locks.
func isExclusionViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23P01")
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("Players").
		Where("id = ?", id).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetPlayers(ctx context.Context, bookingID uuid.UUID) ([]BookingPlayer, error) {
	var players []BookingPlayer
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at").
		Find(&players).Error
	return players, err
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AddPlayerChecked(ctx context.Context, bookingID uuid.UUID, player *BookingPlayer, minPlayersToConfirm int, requireOpen bool) (*Booking, bool, error) {
	var updated *Booking
	confirmedNow := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bookingID).
			First(&booking).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if requireOpen && !booking.IsOpenGame {
			return ErrNotOpenGame
		}
		if !booking.Status.IsActive() {
			return fmt.Errorf("%w: cannot join a %s booking", ErrInvalidTransition, booking.Status)
		}

		var players []BookingPlayer
		if err := tx.Where("booking_id = ?", bookingID).Order("created_at").Find(&players).Error; err != nil {
			return fmt.Errorf("failed to load players: %w", err)
		}

		for i := range players {
			if players[i].UserID == player.UserID {
				return ErrAlreadyJoined
			}
		}
		if len(players) >= booking.MaxPlayers {
			return ErrGameFull
		}

		player.BookingID = bookingID
		if err := tx.Create(player).Error; err != nil {
			return fmt.Errorf("failed to add player: %w", err)
		}
		players = append(players, *player)

		// Equal split is a recomputation across everyone currently on the
		// booking, never an additive adjustment.
		shares := SplitEqual(booking.TotalPrice, len(players))
		for i := range players {
			players[i].AmountDue = shares[i]
			err := tx.Model(&BookingPlayer{}).
				Where("id = ?", players[i].ID).
				Update("amount_due", shares[i]).Error
			if err != nil {
				return fmt.Errorf("failed to re-split amounts: %w", err)
			}
		}
		if !withinMinorUnit(sumShares(players), RoundMoney(booking.TotalPrice)) {
			return fmt.Errorf("%w: booking %s", ErrSplitInvariant, bookingID)
		}

		if booking.IsOpenGame && booking.Status == StatusPending && len(players) >= minPlayersToConfirm {
			err := tx.Model(&Booking{}).
				Where("id = ?", bookingID).
				Update("status", StatusConfirmed).Error
			if err != nil {
				return fmt.Errorf("failed to confirm booking: %w", err)
			}
			booking.Status = StatusConfirmed
			confirmedNow = true
		}

		booking.Players = players
		updated = &booking
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return updated, confirmedNow, nil
}

func (r *repository) SetPlayerPaymentStatus(ctx context.Context, bookingID, userID uuid.UUID, status PlayerPaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&BookingPlayer{}).
		Where("booking_id = ? AND user_id = ? AND payment_status <> ?", bookingID, userID, status).
		Updates(map[string]interface{}{"payment_status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ApplyDiscount(ctx context.Context, bookingID uuid.UUID, amount float64, note string) (*Booking, error) {
	var updated *Booking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bookingID).
			First(&booking).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if !booking.Status.IsActive() {
			return fmt.Errorf("%w: cannot discount a %s booking", ErrInvalidTransition, booking.Status)
		}
		if amount > booking.TotalPrice+0.005 {
			return PolicyError("discount_amount", "discount exceeds booking total")
		}

		var players []BookingPlayer
		if err := tx.Where("booking_id = ?", bookingID).Order("created_at").Find(&players).Error; err != nil {
			return fmt.Errorf("failed to load players: %w", err)
		}

		newTotal := RoundMoney(booking.TotalPrice - amount)

		// The remaining balance is the new total minus money already settled.
		var paid float64
		var unpaid []int
		for i := range players {
			switch players[i].PaymentStatus {
			case PaymentPaid:
				paid += players[i].AmountDue
			case PaymentPending:
				unpaid = append(unpaid, i)
			}
		}
		remaining := RoundMoney(newTotal - paid)
		if remaining < 0 {
			remaining = 0
		}

		if len(unpaid) > 0 {
			shares := SplitEqual(remaining, len(unpaid))
			for n, i := range unpaid {
				players[i].AmountDue = shares[n]
				err := tx.Model(&BookingPlayer{}).
					Where("id = ?", players[i].ID).
					Update("amount_due", shares[n]).Error
				if err != nil {
					return fmt.Errorf("failed to re-split amounts: %w", err)
				}
			}
		}

		notes := booking.Notes
		if notes != "" {
			notes += "\n"
		}
		notes += note
		err = tx.Model(&Booking{}).
			Where("id = ?", bookingID).
			Updates(map[string]interface{}{
				"total_price": newTotal,
				"notes":       notes,
				"updated_at":  time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update booking total: %w", err)
		}

		booking.TotalPrice = newTotal
		booking.Notes = notes
		booking.Players = players
		updated = &booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *repository) AllPlayersPaid(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var unpaid int64
	err := r.db.WithContext(ctx).
		Model(&BookingPlayer{}).
		Where("booking_id = ? AND payment_status <> ?", bookingID, PaymentPaid).
		Count(&unpaid).Error
	if err != nil {
		return false, err
	}
	return unpaid == 0, nil
}

func (r *repository) CountActiveInWeek(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("created_by_user_id = ?", userID).
		Where("status <> ?", StatusCancelled).
		Where("start_datetime >= ? AND start_datetime < ?", weekStart, weekEnd).
		Count(&count).Error
	return count, err
}

func (r *repository) GetUserBookings(ctx context.Context, userID uuid.UUID, upcomingOnly bool, now time.Time) ([]Booking, error) {
	query := r.db.WithContext(ctx).
		Preload("Players").
		Joins("JOIN booking_players bp ON bp.booking_id = bookings.id").
		Where("bp.user_id = ?", userID)

	if upcomingOnly {
		query = query.Where("bookings.start_datetime >= ?", now).Order("bookings.start_datetime")
	} else {
		query = query.Order("bookings.start_datetime DESC")
	}

	var result []Booking
	err := query.Find(&result).Error
	return result, err
}

func (r *repository) BusyIntervals(ctx context.Context, courtID uuid.UUID, from, to time.Time) ([]schedule.Interval, error) {
	var rows []Booking
	err := r.db.WithContext(ctx).
		Select("start_datetime", "end_datetime").
		Where("court_id = ?", courtID).
		Where("status IN ?", []Status{StatusPending, StatusConfirmed}).
		Where("start_datetime < ? AND end_datetime > ?", to, from).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	intervals := make([]schedule.Interval, len(rows))
	for i := range rows {
		intervals[i] = schedule.Interval{Start: rows[i].StartDatetime, End: rows[i].EndDatetime}
	}
	return intervals, nil
}

func (r *repository) OverlappingBookingIDs(ctx context.Context, courtID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	var rows []Booking
	err := r.db.WithContext(ctx).
		Select("id").
		Where("court_id = ?", courtID).
		Where("status IN ?", []Status{StatusPending, StatusConfirmed}).
		Where("start_datetime < ? AND end_datetime > ?", end, start).
		Order("start_datetime").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	return ids, nil
}

func (r *repository) ListOpenGames(ctx context.Context, clubID uuid.UUID, from, to *time.Time) ([]Booking, error) {
	query := r.db.WithContext(ctx).
		Preload("Players").
		Where("club_id = ?", clubID).
		Where("is_open_game = ?", true).
		Where("status IN ?", []Status{StatusPending, StatusConfirmed})

	if from != nil {
		query = query.Where("start_datetime >= ?", *from)
	}
	if to != nil {
		query = query.Where("start_datetime < ?", *to)
	}

	var result []Booking
	err := query.Order("start_datetime").Find(&result).Error
	return result, err
}

func (r *repository) ListPendingOpenGames(ctx context.Context) ([]Booking, error) {
	var result []Booking
	err := r.db.WithContext(ctx).
		Preload("Players").
		Where("is_open_game = ? AND status = ?", true, StatusPending).
		Find(&result).Error
	return result, err
}

func (r *repository) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]Booking, error) {
	var result []Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusConfirmed).
		Where("end_datetime < ?", cutoff).
		Find(&result).Error
	return result, err
}

func (r *repository) ListDueForReminder(ctx context.Context, from, to time.Time) ([]Booking, error) {
	var result []Booking
	err := r.db.WithContext(ctx).
		Preload("Players").
		Where("status = ?", StatusConfirmed).
		Where("reminder_sent_at IS NULL").
		Where("start_datetime >= ? AND start_datetime < ?", from, to).
		Find(&result).Error
	return result, err
}

func (r *repository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ?", id).
		Update("reminder_sent_at", at).Error
}

func (r *repository) CreateInvite(ctx context.Context, invite *Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *repository) GetInvite(ctx context.Context, id uuid.UUID) (*Invite, error) {
	var invite Invite
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repository) UpdateInviteStatus(ctx context.Context, id uuid.UUID, from, to InviteStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Invite{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
