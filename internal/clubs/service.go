package clubs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"courtly/internal/pricing"
	"courtly/internal/shared/constants"
	"courtly/pkg/cache"
)

// BookingReader reports bookings that overlap a window on a court. Declared
// here so staff blackout creation can warn about clashes without importing the
// bookings package (which depends on clubs).
type BookingReader interface {
	OverlappingBookingIDs(ctx context.Context, courtID uuid.UUID, start, end time.Time) ([]uuid.UUID, error)
}

// Service is the read-mostly club configuration collaborator used by the
// booking engine, plus the staff operations that mutate that configuration.
type Service interface {
	SetCacheService(cacheService cache.Service)

	GetSettings(ctx context.Context, clubID uuid.UUID) (*ClubSettings, error)
	UpdateSettings(ctx context.Context, settings *ClubSettings) error

	GetCourt(ctx context.Context, courtID uuid.UUID) (*Court, error)
	GetCourtsByClub(ctx context.Context, clubID uuid.UUID) ([]Court, error)

	GetOperatingHours(ctx context.Context, clubID uuid.UUID, dayOfWeek int) (*OperatingHours, error)
	ReplaceOperatingHours(ctx context.Context, clubID uuid.UUID, hours []OperatingHours) error

	GetResolverRules(ctx context.Context, clubID uuid.UUID) ([]pricing.Rule, error)
	ReplacePricingRules(ctx context.Context, clubID uuid.UUID, rules []PricingRule) error

	GetBlackouts(ctx context.Context, courtID uuid.UUID) ([]CourtBlackout, error)
	CreateBlackout(ctx context.Context, blackout *CourtBlackout) (*BlackoutResult, error)
}

// BlackoutResult reports the created blackout together with bookings it
// clashes with. Conflicts are warnings for staff, never silently dropped.
type BlackoutResult struct {
	Blackout            *CourtBlackout `json:"blackout"`
	ConflictingBookings []uuid.UUID    `json:"conflicting_bookings,omitempty"`
}

type service struct {
	repo          Repository
	bookingReader BookingReader
	cacheService  cache.Service
	cacheTTL      time.Duration
}

func NewService(repo Repository, bookingReader BookingReader) Service {
	return &service{
		repo:          repo,
		bookingReader: bookingReader,
		cacheTTL:      constants.TTL_CLUB_SETTINGS,
	}
}

// SetCacheService enables the settings cache. Invalidation rule: every write
// to settings or pricing deletes the club's cache keys before returning, so
// the next read refetches from Postgres.
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func settingsCacheKey(clubID uuid.UUID) string {
	return constants.BuildClubSettingsKey(clubID.String())
}

func rulesCacheKey(clubID uuid.UUID) string {
	return constants.BuildClubPricingKey(clubID.String())
}

func (s *service) GetSettings(ctx context.Context, clubID uuid.UUID) (*ClubSettings, error) {
	if s.cacheService != nil {
		var cached ClubSettings
		if err := s.cacheService.Get(ctx, settingsCacheKey(clubID), &cached); err == nil {
			return &cached, nil
		}
	}

	settings, err := s.repo.GetSettings(ctx, clubID)
	if err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, settingsCacheKey(clubID), settings, s.cacheTTL); err != nil {
			log.Printf("failed to cache settings for club %s: %v", clubID, err)
		}
	}
	return settings, nil
}

func (s *service) UpdateSettings(ctx context.Context, settings *ClubSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	s.invalidate(ctx, settingsCacheKey(settings.ClubID))
	return nil
}

func (s *service) GetCourt(ctx context.Context, courtID uuid.UUID) (*Court, error) {
	return s.repo.GetCourt(ctx, courtID)
}

func (s *service) GetCourtsByClub(ctx context.Context, clubID uuid.UUID) ([]Court, error) {
	return s.repo.GetCourtsByClub(ctx, clubID)
}

func (s *service) GetOperatingHours(ctx context.Context, clubID uuid.UUID, dayOfWeek int) (*OperatingHours, error) {
	return s.repo.GetOperatingHours(ctx, clubID, dayOfWeek)
}

func (s *service) ReplaceOperatingHours(ctx context.Context, clubID uuid.UUID, hours []OperatingHours) error {
	seen := make(map[int]bool, len(hours))
	for i := range hours {
		h := &hours[i]
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			return fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidHours, h.DayOfWeek)
		}
		if seen[h.DayOfWeek] {
			return fmt.Errorf("%w: duplicate day_of_week %d", ErrInvalidHours, h.DayOfWeek)
		}
		seen[h.DayOfWeek] = true

		open, err := parseClock(h.OpenTime)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHours, err)
		}
		close, err := parseClock(h.CloseTime)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidHours, err)
		}
		if open >= close {
			return fmt.Errorf("%w: day %d opens at or after close", ErrInvalidHours, h.DayOfWeek)
		}
		h.ClubID = clubID
	}
	return s.repo.ReplaceOperatingHours(ctx, clubID, hours)
}

// GetResolverRules loads a club's pricing rules in the pure resolver's shape,
// served from cache when warm.
func (s *service) GetResolverRules(ctx context.Context, clubID uuid.UUID) ([]pricing.Rule, error) {
	if s.cacheService != nil {
		var cached []pricing.Rule
		if err := s.cacheService.Get(ctx, rulesCacheKey(clubID), &cached); err == nil {
			return cached, nil
		}
	}

	stored, err := s.repo.GetPricingRules(ctx, clubID)
	if err != nil {
		return nil, err
	}

	rules := make([]pricing.Rule, 0, len(stored))
	for i := range stored {
		rule, err := stored[i].ToResolverRule()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pricing.ErrConfiguration, err)
		}
		rules = append(rules, rule)
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, rulesCacheKey(clubID), rules, s.cacheTTL); err != nil {
			log.Printf("failed to cache pricing rules for club %s: %v", clubID, err)
		}
	}
	return rules, nil
}

func (s *service) ReplacePricingRules(ctx context.Context, clubID uuid.UUID, rules []PricingRule) error {
	resolverRules := make([]pricing.Rule, 0, len(rules))
	for i := range rules {
		rules[i].ClubID = clubID
		rule, err := rules[i].ToResolverRule()
		if err != nil {
			return fmt.Errorf("%w: %v", pricing.ErrConfiguration, err)
		}
		resolverRules = append(resolverRules, rule)
	}
	if err := pricing.ValidateRules(resolverRules); err != nil {
		return err
	}
	if err := s.repo.ReplacePricingRules(ctx, clubID, rules); err != nil {
		return fmt.Errorf("failed to replace pricing rules: %w", err)
	}
	s.invalidate(ctx, rulesCacheKey(clubID))
	return nil
}

func (s *service) GetBlackouts(ctx context.Context, courtID uuid.UUID) ([]CourtBlackout, error) {
	return s.repo.GetBlackouts(ctx, courtID)
}

// CreateBlackout records the blocked interval and reports any pending or
// confirmed bookings it overlaps. Staff decide what to do with the clashes.
func (s *service) CreateBlackout(ctx context.Context, blackout *CourtBlackout) (*BlackoutResult, error) {
	if !blackout.StartDatetime.Before(blackout.EndDatetime) {
		return nil, fmt.Errorf("%w: blackout start must precede end", ErrInvalidHours)
	}

	var conflicts []uuid.UUID
	if s.bookingReader != nil {
		ids, err := s.bookingReader.OverlappingBookingIDs(ctx, blackout.CourtID, blackout.StartDatetime, blackout.EndDatetime)
		if err != nil {
			return nil, fmt.Errorf("failed to check booking conflicts: %w", err)
		}
		conflicts = ids
	}

	if err := s.repo.CreateBlackout(ctx, blackout); err != nil {
		return nil, fmt.Errorf("failed to create blackout: %w", err)
	}

	return &BlackoutResult{Blackout: blackout, ConflictingBookings: conflicts}, nil
}

func (s *service) invalidate(ctx context.Context, key string) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, key); err != nil {
		log.Printf("failed to invalidate cache key %s: %v", key, err)
	}
}
