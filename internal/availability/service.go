package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courtly/internal/clubs"
	"courtly/internal/pricing"
	"courtly/internal/schedule"
)

// BusyReader reports the intervals already claimed on a court. Implemented by
// the bookings repository; declared here so availability never imports the
// bookings package.
type BusyReader interface {
	BusyIntervals(ctx context.Context, courtID uuid.UUID, from, to time.Time) ([]schedule.Interval, error)
	OverlappingBookingIDs(ctx context.Context, courtID uuid.UUID, start, end time.Time) ([]uuid.UUID, error)
}

// PricedSlot is one bookable window with its resolved price.
type PricedSlot struct {
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	BasePrice         float64   `json:"base_price"`
	LightingSurcharge float64   `json:"lighting_surcharge"`
	TotalPrice        float64   `json:"total_price"`
	RuleLabel         string    `json:"rule_label,omitempty"`
}

// ConflictReport is the outcome of a window conflict check.
type ConflictReport struct {
	Free                bool        `json:"free"`
	ConflictingBookings []uuid.UUID `json:"conflicting_bookings,omitempty"`
	BlackoutConflict    bool        `json:"blackout_conflict"`
}

type Service interface {
	SetClock(now func() time.Time)

	// ListAvailable returns the free, priced slots on a court for one date.
	// A day the club is closed yields an empty list, not an error.
	ListAvailable(ctx context.Context, courtID uuid.UUID, date time.Time) ([]PricedSlot, error)

	// CheckConflict reports whether [start, end) is free of active bookings
	// and blackouts. Advisory only: the authoritative check runs inside the
	// booking insert transaction.
	CheckConflict(ctx context.Context, courtID uuid.UUID, start, end time.Time) (*ConflictReport, error)
}

type service struct {
	clubService clubs.Service
	busyReader  BusyReader
	now         func() time.Time
}

func NewService(clubService clubs.Service, busyReader BusyReader) Service {
	return &service{
		clubService: clubService,
		busyReader:  busyReader,
		now:         time.Now,
	}
}

// SetClock overrides the time source. Tests use it to pin "now".
func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *service) ListAvailable(ctx context.Context, courtID uuid.UUID, date time.Time) ([]PricedSlot, error) {
	court, err := s.clubService.GetCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if !court.IsActive {
		return []PricedSlot{}, nil
	}

	settings, err := s.clubService.GetSettings(ctx, court.ClubID)
	if err != nil {
		return nil, err
	}

	hours, err := s.clubService.GetOperatingHours(ctx, court.ClubID, int(date.Weekday()))
	if errors.Is(err, clubs.ErrNoOperatingHours) {
		// Closed that day.
		return []PricedSlot{}, nil
	}
	if err != nil {
		return nil, err
	}

	open, close, err := hours.Window(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pricing.ErrConfiguration, err)
	}

	candidates := schedule.SlotsFor(open, close, settings.BookingDuration())
	if len(candidates) == 0 {
		return []PricedSlot{}, nil
	}

	busy, err := s.busyIntervals(ctx, courtID, open, close)
	if err != nil {
		return nil, err
	}
	free := schedule.Subtract(candidates, busy)

	now := s.now()
	earliest := now.Add(time.Duration(settings.MinBookingNoticeHours) * time.Hour)
	latest := now.AddDate(0, 0, settings.MaxAdvanceBookingDays)

	rules, err := s.clubService.GetResolverRules(ctx, court.ClubID)
	if err != nil {
		return nil, err
	}

	result := make([]PricedSlot, 0, len(free))
	for _, slot := range free {
		if slot.Start.Before(earliest) || slot.Start.After(latest) {
			continue
		}
		quote := pricing.QuoteSlot(rules, settings.OffPeakPrice,
			court.HasLighting, court.LightingSurcharge,
			slot.Start, settings.DaylightEndMinute())
		result = append(result, PricedSlot{
			Start:             slot.Start,
			End:               slot.End,
			BasePrice:         quote.BasePrice,
			LightingSurcharge: quote.LightingSurcharge,
			TotalPrice:        quote.Total,
			RuleLabel:         quote.RuleLabel,
		})
	}
	return result, nil
}

func (s *service) CheckConflict(ctx context.Context, courtID uuid.UUID, start, end time.Time) (*ConflictReport, error) {
	ids, err := s.busyReader.OverlappingBookingIDs(ctx, courtID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to check booking overlaps: %w", err)
	}

	blackouts, err := s.clubService.GetBlackouts(ctx, courtID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blackouts: %w", err)
	}
	blackoutHit := false
	for i := range blackouts {
		if schedule.Overlaps(start, end, blackouts[i].StartDatetime, blackouts[i].EndDatetime) {
			blackoutHit = true
			break
		}
	}

	return &ConflictReport{
		Free:                len(ids) == 0 && !blackoutHit,
		ConflictingBookings: ids,
		BlackoutConflict:    blackoutHit,
	}, nil
}

// busyIntervals merges active bookings and blackouts overlapping the window.
func (s *service) busyIntervals(ctx context.Context, courtID uuid.UUID, from, to time.Time) ([]schedule.Interval, error) {
	busy, err := s.busyReader.BusyIntervals(ctx, courtID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy intervals: %w", err)
	}

	blackouts, err := s.clubService.GetBlackouts(ctx, courtID)
	if err != nil {
		return nil, fmt.Errorf("failed to load blackouts: %w", err)
	}
	for i := range blackouts {
		if schedule.Overlaps(from, to, blackouts[i].StartDatetime, blackouts[i].EndDatetime) {
			busy = append(busy, schedule.Interval{
				Start: blackouts[i].StartDatetime,
				End:   blackouts[i].EndDatetime,
			})
		}
	}
	return busy, nil
}
