package bookings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"courtly/internal/availability"
	"courtly/internal/clubs"
	"courtly/internal/notifications"
	"courtly/internal/pricing"
	"courtly/internal/schedule"
	"courtly/internal/users"
)

// WaitlistService is the slice of the waitlist queue the lifecycle needs.
// Declared locally and wired via setter so bookings and waitlist stay
// independent packages.
type WaitlistService interface {
	Join(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) (int, error)
	Promote(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time) (*uuid.UUID, error)
}

// SettlementService is the slice of payment settlement the lifecycle calls
// when a cancellation owes money back. Wired via setter for the same reason.
type SettlementService interface {
	RefundPlayer(ctx context.Context, bookingID, userID uuid.UUID, amount float64, reason string) error
}

// actorSystem labels lifecycle transitions driven by sweeps rather than users.
const actorSystem = "system"

type Service interface {
	SetWaitlistService(waitlist WaitlistService)
	SetSettlementService(settlement SettlementService)
	SetClock(now func() time.Time)

	Create(ctx context.Context, req *CreateBookingRequest, creatorID uuid.UUID) (*BookingResponse, error)
	GetBooking(ctx context.Context, bookingID, actorID uuid.UUID, isStaff bool) (*BookingResponse, error)
	ListUserBookings(ctx context.Context, userID uuid.UUID, upcomingOnly bool) ([]BookingResponse, error)
	ListOpenGames(ctx context.Context, clubID uuid.UUID, query *OpenGameQuery) ([]BookingResponse, error)

	JoinOpenGame(ctx context.Context, bookingID, userID uuid.UUID) (*BookingResponse, error)
	Invite(ctx context.Context, bookingID, inviterID uuid.UUID, req *InviteRequest) (*Invite, error)
	RespondToInvite(ctx context.Context, inviteID, inviteeID uuid.UUID, accept bool) (*BookingResponse, error)
	JoinWaitlist(ctx context.Context, bookingID, userID uuid.UUID) (int, error)

	Cancel(ctx context.Context, bookingID, actorID uuid.UUID, isStaff bool, reason string) (*BookingResponse, error)

	// ApplyDiscount is staff-only: it reduces the booking total and re-splits
	// the unpaid shares. The application is recorded in the booking notes.
	ApplyDiscount(ctx context.Context, bookingID, staffID uuid.UUID, req *DiscountRequest) (*BookingResponse, error)

	// Sweep entry points, driven by the job scheduler. All idempotent.
	AutoCancelUnderfilled(ctx context.Context) (int, error)
	CompleteExpired(ctx context.Context) (int, error)
	SendDueReminders(ctx context.Context) (int, error)

	// Settlement hooks. Called by payment settlement after money state changed.
	MarkPlayerPaid(ctx context.Context, bookingID, userID uuid.UUID) (bool, error)
	MarkPlayerRefunded(ctx context.Context, bookingID, userID uuid.UUID) error
}

type service struct {
	repo         Repository
	clubService  clubs.Service
	userRepo     users.Repository
	availability availability.Service
	dispatcher   notifications.Dispatcher

	waitlist   WaitlistService
	settlement SettlementService
	now        func() time.Time
}

func NewService(repo Repository, clubService clubs.Service, userRepo users.Repository,
	availabilityService availability.Service, dispatcher notifications.Dispatcher) Service {
	return &service{
		repo:         repo,
		clubService:  clubService,
		userRepo:     userRepo,
		availability: availabilityService,
		dispatcher:   dispatcher,
		now:          time.Now,
	}
}

func (s *service) SetWaitlistService(waitlist WaitlistService) { s.waitlist = waitlist }

func (s *service) SetSettlementService(settlement SettlementService) { s.settlement = settlement }

func (s *service) SetClock(now func() time.Time) { s.now = now }

func (s *service) Create(ctx context.Context, req *CreateBookingRequest, creatorID uuid.UUID) (*BookingResponse, error) {
	clubID, err := uuid.Parse(req.ClubID)
	if err != nil {
		return nil, fmt.Errorf("invalid club id: %w", err)
	}
	courtID, err := uuid.Parse(req.CourtID)
	if err != nil {
		return nil, fmt.Errorf("invalid court id: %w", err)
	}
	bookingType := BookingType(req.BookingType)
	if !bookingType.IsValid() {
		return nil, fmt.Errorf("invalid booking type %q", req.BookingType)
	}

	court, err := s.clubService.GetCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if court.ClubID != clubID {
		return nil, fmt.Errorf("%w: court does not belong to club", ErrNotFound)
	}
	if !court.IsActive {
		return nil, PolicyError("court_active", "court is not accepting bookings")
	}

	settings, err := s.clubService.GetSettings(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if req.IsOpenGame && !settings.OpenGamesEnabled {
		return nil, PolicyError("open_games_enabled", "club does not allow open games")
	}

	start := req.Start
	end := start.Add(settings.BookingDuration())
	if req.End != nil {
		end = *req.End
	}
	if !start.Before(end) {
		return nil, PolicyError("booking_window", "start must precede end")
	}
	if end.Sub(start) != settings.BookingDuration() && !bookingType.AllowsCustomDuration() {
		return nil, PolicyError("booking_duration",
			fmt.Sprintf("bookings of type %s must last exactly %d minutes",
				bookingType, settings.BookingDurationMinutes))
	}

	now := s.now()
	if start.Before(now.Add(time.Duration(settings.MinBookingNoticeHours) * time.Hour)) {
		return nil, PolicyError("min_booking_notice_hours",
			fmt.Sprintf("bookings require %d hours notice", settings.MinBookingNoticeHours))
	}
	if start.After(now.AddDate(0, 0, settings.MaxAdvanceBookingDays)) {
		return nil, PolicyError("max_advance_booking_days",
			fmt.Sprintf("bookings open %d days ahead", settings.MaxAdvanceBookingDays))
	}

	if settings.MaxBookingsPerPlayerPerWeek != nil {
		weekStart, weekEnd := weekBounds(start)
		count, err := s.repo.CountActiveInWeek(ctx, creatorID, weekStart, weekEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to count weekly bookings: %w", err)
		}
		if count >= int64(*settings.MaxBookingsPerPlayerPerWeek) {
			return nil, PolicyError("max_bookings_per_player_per_week",
				fmt.Sprintf("weekly cap of %d bookings reached", *settings.MaxBookingsPerPlayerPerWeek))
		}
	}

	if err := s.validateWithinHours(ctx, clubID, start, end); err != nil {
		return nil, err
	}

	// Advisory pre-check; the insert transaction re-checks under lock.
	report, err := s.availability.CheckConflict(ctx, courtID, start, end)
	if err != nil {
		return nil, err
	}
	if !report.Free {
		return nil, fmt.Errorf("%w: window is taken", ErrSlotConflict)
	}

	rules, err := s.clubService.GetResolverRules(ctx, clubID)
	if err != nil {
		return nil, err
	}
	quote := pricing.QuoteSlot(rules, settings.OffPeakPrice,
		court.HasLighting, court.LightingSurcharge, start, settings.DaylightEndMinute())
	total := RoundMoney(quote.Total)

	organiserDue := total
	if req.IsOpenGame {
		organiserDue = SplitEqual(total, req.MaxPlayers)[0]
	}

	booking := &Booking{
		ClubID:          clubID,
		CourtID:         courtID,
		BookingType:     bookingType,
		Status:          StatusPending,
		StartDatetime:   start,
		EndDatetime:     end,
		CreatedByUserID: creatorID,
		MaxPlayers:      req.MaxPlayers,
		IsOpenGame:      req.IsOpenGame,
		TotalPrice:      total,
		Notes:           req.Notes,
	}
	organiser := &BookingPlayer{
		UserID:        creatorID,
		Role:          RoleOrganiser,
		PaymentStatus: PaymentPending,
		AmountDue:     organiserDue,
	}

	blackouts, err := s.blackoutIntervals(ctx, courtID, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateBookingChecked(ctx, booking, organiser, blackouts); err != nil {
		return nil, err
	}
	booking.Players = []BookingPlayer{*organiser}

	s.emit(ctx, notifications.EventBookingCreated, map[string]interface{}{
		"booking_id":   booking.ID.String(),
		"club_id":      clubID.String(),
		"court_id":     courtID.String(),
		"user_id":      creatorID.String(),
		"start":        start,
		"end":          end,
		"total_price":  total,
		"is_open_game": req.IsOpenGame,
	})

	return booking.ToResponse(), nil
}

func (s *service) GetBooking(ctx context.Context, bookingID, actorID uuid.UUID, isStaff bool) (*BookingResponse, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isStaff && !booking.HasPlayer(actorID) && booking.CreatedByUserID != actorID && !booking.IsOpenGame {
		return nil, ErrNotAuthorised
	}
	return booking.ToResponse(), nil
}

func (s *service) ListUserBookings(ctx context.Context, userID uuid.UUID, upcomingOnly bool) ([]BookingResponse, error) {
	list, err := s.repo.GetUserBookings(ctx, userID, upcomingOnly, s.now())
	if err != nil {
		return nil, err
	}
	return toResponses(list), nil
}

func (s *service) ListOpenGames(ctx context.Context, clubID uuid.UUID, query *OpenGameQuery) ([]BookingResponse, error) {
	var from, to *time.Time
	if query != nil && query.Date != "" {
		day, err := time.Parse("2006-01-02", query.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", query.Date)
		}
		next := day.AddDate(0, 0, 1)
		from, to = &day, &next
	} else {
		now := s.now()
		from = &now
	}

	games, err := s.repo.ListOpenGames(ctx, clubID, from, to)
	if err != nil {
		return nil, err
	}

	if query != nil && query.SkillLevel != nil {
		settings, err := s.clubService.GetSettings(ctx, clubID)
		if err != nil {
			return nil, err
		}
		filtered := games[:0]
		for i := range games {
			ok, err := s.skillCompatible(ctx, &games[i], *query.SkillLevel, settings.SkillRangeAllowed)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, games[i])
			}
		}
		games = filtered
	}
	return toResponses(games), nil
}

func (s *service) JoinOpenGame(ctx context.Context, bookingID, userID uuid.UUID) (*BookingResponse, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsOpenGame {
		return nil, ErrNotOpenGame
	}

	settings, err := s.clubService.GetSettings(ctx, booking.ClubID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.SkillLevel != nil && settings.SkillRangeAllowed > 0 {
		ok, err := s.skillCompatible(ctx, booking, *user.SkillLevel, settings.SkillRangeAllowed)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSkillMismatch
		}
	}

	player := &BookingPlayer{
		UserID:        userID,
		Role:          RolePlayer,
		PaymentStatus: PaymentPending,
	}
	updated, confirmedNow, err := s.repo.AddPlayerChecked(ctx, bookingID, player, settings.MinPlayersToConfirm, true)
	if err != nil {
		return nil, err
	}

	if confirmedNow {
		s.emit(ctx, notifications.EventBookingConfirmed, map[string]interface{}{
			"booking_id": bookingID.String(),
			"court_id":   updated.CourtID.String(),
			"reason":     "quorum_reached",
		})
	}
	return updated.ToResponse(), nil
}

func (s *service) Invite(ctx context.Context, bookingID, inviterID uuid.UUID, req *InviteRequest) (*Invite, error) {
	inviteeID, err := uuid.Parse(req.InviteeID)
	if err != nil {
		return nil, fmt.Errorf("invalid invitee id: %w", err)
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.HasPlayer(inviterID) {
		return nil, fmt.Errorf("%w: inviter is not a player", ErrNotAuthorised)
	}
	if booking.HasPlayer(inviteeID) {
		return nil, ErrAlreadyJoined
	}
	if !booking.Status.IsActive() {
		return nil, fmt.Errorf("%w: cannot invite to a %s booking", ErrInvalidTransition, booking.Status)
	}

	invite := &Invite{
		BookingID: bookingID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    InvitePending,
	}
	if err := s.repo.CreateInvite(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return invite, nil
}

// RespondToInvite accepts or declines. Acceptance mirrors joinOpenGame but
// skips the skill check: being invited is the organiser vouching for you.
func (s *service) RespondToInvite(ctx context.Context, inviteID, inviteeID uuid.UUID, accept bool) (*BookingResponse, error) {
	invite, err := s.repo.GetInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite.InviteeID != inviteeID {
		return nil, ErrNotAuthorised
	}

	target := InviteAccepted
	if !accept {
		target = InviteDeclined
	}
	applied, err := s.repo.UpdateInviteStatus(ctx, inviteID, InvitePending, target)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: invite already answered", ErrInvalidTransition)
	}
	if !accept {
		return nil, nil
	}

	booking, err := s.repo.GetByID(ctx, invite.BookingID)
	if err != nil {
		return nil, err
	}
	settings, err := s.clubService.GetSettings(ctx, booking.ClubID)
	if err != nil {
		return nil, err
	}

	player := &BookingPlayer{
		UserID:        inviteeID,
		Role:          RolePlayer,
		PaymentStatus: PaymentPending,
	}
	updated, confirmedNow, err := s.repo.AddPlayerChecked(ctx, invite.BookingID, player, settings.MinPlayersToConfirm, false)
	if err != nil {
		return nil, err
	}
	if confirmedNow {
		s.emit(ctx, notifications.EventBookingConfirmed, map[string]interface{}{
			"booking_id": invite.BookingID.String(),
			"court_id":   updated.CourtID.String(),
			"reason":     "quorum_reached",
		})
	}
	return updated.ToResponse(), nil
}

func (s *service) JoinWaitlist(ctx context.Context, bookingID, userID uuid.UUID) (int, error) {
	if s.waitlist == nil {
		return 0, ErrWaitlistDisabled
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	settings, err := s.clubService.GetSettings(ctx, booking.ClubID)
	if err != nil {
		return 0, err
	}
	if !settings.WaitlistEnabled {
		return 0, ErrWaitlistDisabled
	}
	if booking.HasPlayer(userID) {
		return 0, ErrAlreadyJoined
	}

	return s.waitlist.Join(ctx, booking.CourtID, booking.StartDatetime, booking.EndDatetime, userID)
}

func (s *service) Cancel(ctx context.Context, bookingID, actorID uuid.UUID, isStaff bool, reason string) (*BookingResponse, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isStaff && booking.CreatedByUserID != actorID && !booking.HasPlayer(actorID) {
		return nil, ErrNotAuthorised
	}
	if !booking.Status.CanBeCancelled() {
		return nil, fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidTransition, booking.Status)
	}

	settings, err := s.clubService.GetSettings(ctx, booking.ClubID)
	if err != nil {
		return nil, err
	}

	// Two-tier refund: full configured percentage when the notice window is
	// respected, the late percentage otherwise.
	refundPct := settings.CancellationRefundPct
	hoursToStart := booking.StartDatetime.Sub(s.now()).Hours()
	if hoursToStart < float64(settings.CancellationNoticeHours) {
		refundPct = settings.LateCancellationRefundPct
	}

	return s.cancelBooking(ctx, booking, actorID.String(), refundPct, reason)
}

// cancelBooking is the shared cancellation path for user, staff and system
// actors. The status write is a compare-and-swap, so a raced double-cancel
// takes effect exactly once; refunds and events follow the committed write.
func (s *service) cancelBooking(ctx context.Context, booking *Booking, actor string, refundPct int, reason string) (*BookingResponse, error) {
	now := s.now()
	updates := map[string]interface{}{
		"cancelled_at":        now,
		"cancellation_reason": reason,
	}
	applied, err := s.repo.TransitionStatus(ctx, booking.ID, booking.Status, StatusCancelled, updates)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: booking no longer %s", ErrInvalidTransition, booking.Status)
	}
	booking.Status = StatusCancelled
	booking.CancelledAt = &now
	booking.CancellationReason = &reason

	if s.settlement != nil && refundPct > 0 {
		for i := range booking.Players {
			p := &booking.Players[i]
			if p.PaymentStatus != PaymentPaid {
				continue
			}
			amount := RoundMoney(p.AmountDue * float64(refundPct) / 100)
			if amount <= 0 {
				continue
			}
			if err := s.settlement.RefundPlayer(ctx, booking.ID, p.UserID, amount, reason); err != nil {
				// The cancellation stands; the refund is retried through the
				// payment event stream.
				log.Printf("refund request failed for booking %s user %s: %v", booking.ID, p.UserID, err)
				s.emit(ctx, notifications.EventPaymentRefundRequired, map[string]interface{}{
					"booking_id": booking.ID.String(),
					"user_id":    p.UserID.String(),
					"amount":     amount,
					"reason":     reason,
				})
			}
		}
	}

	s.emit(ctx, notifications.EventBookingCancelled, map[string]interface{}{
		"booking_id": booking.ID.String(),
		"court_id":   booking.CourtID.String(),
		"actor":      actor,
		"reason":     reason,
		"refund_pct": refundPct,
	})

	s.promoteWaitlist(ctx, booking)
	return booking.ToResponse(), nil
}

// promoteWaitlist notifies the next queued user for the vacated window. It
// never auto-books: the promoted user still has to claim the slot.
func (s *service) promoteWaitlist(ctx context.Context, booking *Booking) {
	if s.waitlist == nil {
		return
	}
	userID, err := s.waitlist.Promote(ctx, booking.CourtID, booking.StartDatetime, booking.EndDatetime)
	if err != nil {
		log.Printf("waitlist promotion failed for court %s: %v", booking.CourtID, err)
		return
	}
	if userID == nil {
		return
	}
	s.emit(ctx, notifications.EventWaitlistSlotAvailable, map[string]interface{}{
		"court_id":   booking.CourtID.String(),
		"user_id":    userID.String(),
		"start":      booking.StartDatetime,
		"end":        booking.EndDatetime,
		"booking_id": booking.ID.String(),
	})
}

func (s *service) ApplyDiscount(ctx context.Context, bookingID, staffID uuid.UUID, req *DiscountRequest) (*BookingResponse, error) {
	amount := RoundMoney(req.Amount)
	if amount <= 0 {
		return nil, PolicyError("discount_amount", "discount must be positive")
	}

	note := fmt.Sprintf("discount %.2f applied by %s", amount, staffID)
	if req.Reason != "" {
		note = fmt.Sprintf("%s: %s", note, req.Reason)
	}

	booking, err := s.repo.ApplyDiscount(ctx, bookingID, amount, note)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, notifications.EventBookingDiscounted, map[string]interface{}{
		"booking_id": booking.ID.String(),
		"staff_id":   staffID.String(),
		"amount":     amount,
		"new_total":  booking.TotalPrice,
	})
	return booking.ToResponse(), nil
}

// AutoCancelUnderfilled cancels pending open games that missed their quorum
// deadline. Players get a full refund: an underfilled game is nobody's fault.
// The deadline is per club, so candidate selection cannot pre-filter by a
// fixed horizon; the per-booking check below decides.
func (s *service) AutoCancelUnderfilled(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.repo.ListPendingOpenGames(ctx)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range candidates {
		booking := &candidates[i]
		settings, err := s.clubService.GetSettings(ctx, booking.ClubID)
		if err != nil {
			log.Printf("auto-cancel: failed to load settings for club %s: %v", booking.ClubID, err)
			continue
		}
		if settings.AutoCancelHoursBefore == nil {
			continue
		}
		deadline := booking.StartDatetime.Add(-time.Duration(*settings.AutoCancelHoursBefore) * time.Hour)
		if now.Before(deadline) {
			continue
		}
		if booking.PlayerCount() >= settings.MinPlayersToConfirm {
			continue
		}
		if _, err := s.cancelBooking(ctx, booking, actorSystem, 100, "open game did not reach quorum"); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue // raced with a join or manual cancel
			}
			log.Printf("auto-cancel failed for booking %s: %v", booking.ID, err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// CompleteExpired moves confirmed bookings whose window has passed into
// completed. The compare-and-swap write makes overlapping sweep runs safe.
func (s *service) CompleteExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.ListConfirmedEndedBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range expired {
		applied, err := s.repo.TransitionStatus(ctx, expired[i].ID, StatusConfirmed, StatusCompleted, nil)
		if err != nil {
			log.Printf("completion failed for booking %s: %v", expired[i].ID, err)
			continue
		}
		if !applied {
			continue
		}
		completed++
		s.emit(ctx, notifications.EventBookingCompleted, map[string]interface{}{
			"booking_id": expired[i].ID.String(),
			"court_id":   expired[i].CourtID.String(),
		})
	}
	return completed, nil
}

// SendDueReminders emits one reminder per confirmed booking inside its club's
// reminder window. The sent marker keeps replays from double-notifying.
func (s *service) SendDueReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.ListDueForReminder(ctx, now, now.Add(48*time.Hour))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		booking := &due[i]
		settings, err := s.clubService.GetSettings(ctx, booking.ClubID)
		if err != nil {
			log.Printf("reminders: failed to load settings for club %s: %v", booking.ClubID, err)
			continue
		}
		if booking.StartDatetime.Sub(now) > time.Duration(settings.ReminderHoursBefore)*time.Hour {
			continue
		}
		playerIDs := make([]string, 0, len(booking.Players))
		for j := range booking.Players {
			playerIDs = append(playerIDs, booking.Players[j].UserID.String())
		}
		s.emit(ctx, notifications.EventBookingReminderDue, map[string]interface{}{
			"booking_id": booking.ID.String(),
			"court_id":   booking.CourtID.String(),
			"start":      booking.StartDatetime,
			"players":    playerIDs,
		})
		if err := s.repo.MarkReminderSent(ctx, booking.ID, now); err != nil {
			log.Printf("reminders: failed to mark booking %s: %v", booking.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// MarkPlayerPaid records a settled payment and confirms the booking once every
// player has paid. Returns whether this call performed the confirmation.
func (s *service) MarkPlayerPaid(ctx context.Context, bookingID, userID uuid.UUID) (bool, error) {
	if _, err := s.repo.SetPlayerPaymentStatus(ctx, bookingID, userID, PaymentPaid); err != nil {
		return false, err
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if booking.Status != StatusPending {
		return false, nil
	}

	allPaid, err := s.repo.AllPlayersPaid(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if !allPaid {
		return false, nil
	}

	applied, err := s.repo.TransitionStatus(ctx, bookingID, StatusPending, StatusConfirmed, nil)
	if err != nil {
		return false, err
	}
	if applied {
		s.emit(ctx, notifications.EventBookingConfirmed, map[string]interface{}{
			"booking_id": bookingID.String(),
			"court_id":   booking.CourtID.String(),
			"reason":     "payment_settled",
		})
	}
	return applied, nil
}

func (s *service) MarkPlayerRefunded(ctx context.Context, bookingID, userID uuid.UUID) error {
	_, err := s.repo.SetPlayerPaymentStatus(ctx, bookingID, userID, PaymentRefunded)
	return err
}

// skillCompatible compares a candidate's skill level against the mean of the
// current players' levels. Players without a recorded level are ignored; an
// all-unrated booking accepts anyone.
func (s *service) skillCompatible(ctx context.Context, booking *Booking, skill, allowed float64) (bool, error) {
	if allowed <= 0 {
		return true, nil
	}

	ids := make([]uuid.UUID, 0, len(booking.Players))
	for i := range booking.Players {
		ids = append(ids, booking.Players[i].UserID)
	}
	players, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return false, fmt.Errorf("failed to load player skill levels: %w", err)
	}

	var sum float64
	var rated int
	for i := range players {
		if players[i].SkillLevel != nil {
			sum += *players[i].SkillLevel
			rated++
		}
	}
	if rated == 0 {
		return true, nil
	}
	return math.Abs(skill-sum/float64(rated)) <= allowed, nil
}

// validateWithinHours rejects windows outside the club's operating hours for
// the booking's weekday. Missing hours for that day is a configuration state
// the caller must see, not a silent rejection.
func (s *service) validateWithinHours(ctx context.Context, clubID uuid.UUID, start, end time.Time) error {
	hours, err := s.clubService.GetOperatingHours(ctx, clubID, int(start.Weekday()))
	if err != nil {
		return err
	}
	open, close, err := hours.Window(start)
	if err != nil {
		return fmt.Errorf("%w: %v", pricing.ErrConfiguration, err)
	}
	if start.Before(open) || end.After(close) {
		return PolicyError("operating_hours",
			fmt.Sprintf("club is open %s to %s that day", hours.OpenTime, hours.CloseTime))
	}
	return nil
}

// blackoutIntervals returns the blackouts overlapping [start, end) as plain
// intervals for the insert transaction's conflict check.
func (s *service) blackoutIntervals(ctx context.Context, courtID uuid.UUID, start, end time.Time) ([]schedule.Interval, error) {
	blackouts, err := s.clubService.GetBlackouts(ctx, courtID)
	if err != nil {
		return nil, err
	}
	intervals := make([]schedule.Interval, 0, len(blackouts))
	for i := range blackouts {
		if schedule.Overlaps(start, end, blackouts[i].StartDatetime, blackouts[i].EndDatetime) {
			intervals = append(intervals, schedule.Interval{
				Start: blackouts[i].StartDatetime,
				End:   blackouts[i].EndDatetime,
			})
		}
	}
	return intervals, nil
}

// weekBounds returns the Monday-anchored [start, end) week containing t,
// in t's location.
func weekBounds(t time.Time) (time.Time, time.Time) {
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	weekStart := day.AddDate(0, 0, -offset)
	return weekStart, weekStart.AddDate(0, 0, 7)
}

func toResponses(list []Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(list))
	for i := range list {
		out = append(out, *list[i].ToResponse())
	}
	return out
}

func (s *service) emit(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Emit(ctx, eventType, payload); err != nil {
		log.Printf("failed to emit %s: %v", eventType, err)
	}
}
