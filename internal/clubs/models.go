package clubs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"courtly/internal/pricing"
)

// Club is a tenant-owned venue with its own courts, hours and pricing.
type Club struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null;size:255"`
	Address   string    `json:"address" gorm:"type:text"`
	Currency  string    `json:"currency" gorm:"type:varchar(3);not null;default:'GBP'"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Settings *ClubSettings `json:"settings,omitempty" gorm:"foreignKey:ClubID"`
	Courts   []Court       `json:"courts,omitempty" gorm:"foreignKey:ClubID"`
}

// ClubSettings holds the booking rules the engine enforces for a club.
type ClubSettings struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClubID uuid.UUID `json:"club_id" gorm:"type:uuid;not null;uniqueIndex"`

	BookingDurationMinutes       int     `json:"booking_duration_minutes" gorm:"not null;default:90"`
	MaxAdvanceBookingDays        int     `json:"max_advance_booking_days" gorm:"not null;default:14"`
	MinBookingNoticeHours        int     `json:"min_booking_notice_hours" gorm:"not null;default:2"`
	MaxBookingsPerPlayerPerWeek  *int    `json:"max_bookings_per_player_per_week,omitempty"`
	SkillLevelMin                float64 `json:"skill_level_min" gorm:"not null;default:1.0"`
	SkillLevelMax                float64 `json:"skill_level_max" gorm:"not null;default:7.0"`
	SkillRangeAllowed            float64 `json:"skill_range_allowed" gorm:"not null;default:1.5"`
	OpenGamesEnabled             bool    `json:"open_games_enabled" gorm:"not null;default:true"`
	MinPlayersToConfirm          int     `json:"min_players_to_confirm" gorm:"not null;default:4;check:min_players_to_confirm >= 1"`
	AutoCancelHoursBefore        *int    `json:"auto_cancel_hours_before,omitempty"`
	CancellationNoticeHours      int     `json:"cancellation_notice_hours" gorm:"not null;default:48"`
	CancellationRefundPct        int     `json:"cancellation_refund_pct" gorm:"not null;default:100"`
	LateCancellationRefundPct    int     `json:"late_cancellation_refund_pct" gorm:"not null;default:0"`
	ReminderHoursBefore          int     `json:"reminder_hours_before" gorm:"not null;default:24"`
	WaitlistEnabled              bool    `json:"waitlist_enabled" gorm:"not null;default:true"`
	OffPeakPrice                 float64 `json:"off_peak_price" gorm:"not null;default:18.00"`
	DaylightEndTime              string  `json:"daylight_end_time" gorm:"type:varchar(5);not null;default:'18:00'"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Validate checks the cross-field invariants staff input must satisfy.
func (s *ClubSettings) Validate() error {
	if s.MinPlayersToConfirm < 1 {
		return fmt.Errorf("%w: min_players_to_confirm must be at least 1", ErrInvalidSettings)
	}
	if s.SkillLevelMin > s.SkillLevelMax {
		return fmt.Errorf("%w: skill_level_min exceeds skill_level_max", ErrInvalidSettings)
	}
	if s.BookingDurationMinutes <= 0 {
		return fmt.Errorf("%w: booking_duration_minutes must be positive", ErrInvalidSettings)
	}
	if s.CancellationRefundPct < 0 || s.CancellationRefundPct > 100 ||
		s.LateCancellationRefundPct < 0 || s.LateCancellationRefundPct > 100 {
		return fmt.Errorf("%w: refund percentages must be within 0..100", ErrInvalidSettings)
	}
	if _, err := parseClock(s.DaylightEndTime); err != nil {
		return fmt.Errorf("%w: daylight_end_time: %v", ErrInvalidSettings, err)
	}
	return nil
}

// BookingDuration returns the configured slot length.
func (s *ClubSettings) BookingDuration() time.Duration {
	return time.Duration(s.BookingDurationMinutes) * time.Minute
}

// DaylightEndMinute returns the lighting threshold as minutes since midnight.
func (s *ClubSettings) DaylightEndMinute() int {
	m, err := parseClock(s.DaylightEndTime)
	if err != nil {
		return 18 * 60
	}
	return m
}

// SurfaceType enumerates court surfaces.
type SurfaceType string

const (
	SurfaceIndoor          SurfaceType = "indoor"
	SurfaceOutdoor         SurfaceType = "outdoor"
	SurfaceCrystal         SurfaceType = "crystal"
	SurfaceArtificialGrass SurfaceType = "artificial_grass"
)

// IsValid checks if the surface type is a known value.
func (s SurfaceType) IsValid() bool {
	switch s {
	case SurfaceIndoor, SurfaceOutdoor, SurfaceCrystal, SurfaceArtificialGrass:
		return true
	}
	return false
}

// Court is a bookable resource inside a club.
type Court struct {
	ID                uuid.UUID   `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClubID            uuid.UUID   `json:"club_id" gorm:"type:uuid;not null;index"`
	Name              string      `json:"name" gorm:"not null;size:100"`
	SurfaceType       SurfaceType `json:"surface_type" gorm:"type:varchar(20);not null"`
	HasLighting       bool        `json:"has_lighting" gorm:"not null;default:false"`
	LightingSurcharge float64     `json:"lighting_surcharge" gorm:"not null;default:0"`
	IsActive          bool        `json:"is_active" gorm:"not null;default:true"`
}

// OperatingHours is the open/close window for a club on one weekday.
// At most one row exists per (club, day_of_week).
type OperatingHours struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClubID    uuid.UUID `json:"club_id" gorm:"type:uuid;not null;uniqueIndex:idx_club_day"`
	DayOfWeek int       `json:"day_of_week" gorm:"not null;uniqueIndex:idx_club_day;check:day_of_week BETWEEN 0 AND 6"`
	OpenTime  string    `json:"open_time" gorm:"type:varchar(5);not null"`
	CloseTime string    `json:"close_time" gorm:"type:varchar(5);not null"`
}

// Window anchors the open/close clock times onto a concrete date.
func (h *OperatingHours) Window(date time.Time) (open, close time.Time, err error) {
	openMin, err := parseClock(h.OpenTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	closeMin, err := parseClock(h.CloseTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return midnight.Add(time.Duration(openMin) * time.Minute),
		midnight.Add(time.Duration(closeMin) * time.Minute), nil
}

// PricingRule is a persisted pricing window for one weekday.
type PricingRule struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClubID       uuid.UUID `json:"club_id" gorm:"type:uuid;not null;index"`
	Label        string    `json:"label" gorm:"not null;size:50"`
	DayOfWeek    int       `json:"day_of_week" gorm:"not null;check:day_of_week BETWEEN 0 AND 6"`
	StartTime    string    `json:"start_time" gorm:"type:varchar(5);not null"`
	EndTime      string    `json:"end_time" gorm:"type:varchar(5);not null"`
	PricePerSlot float64   `json:"price_per_slot" gorm:"not null;check:price_per_slot >= 0"`
}

// ToResolverRule converts the persisted rule into the pure resolver's shape.
func (r *PricingRule) ToResolverRule() (pricing.Rule, error) {
	start, err := parseClock(r.StartTime)
	if err != nil {
		return pricing.Rule{}, fmt.Errorf("rule %q start_time: %w", r.Label, err)
	}
	end, err := parseClock(r.EndTime)
	if err != nil {
		return pricing.Rule{}, fmt.Errorf("rule %q end_time: %w", r.Label, err)
	}
	return pricing.Rule{
		Label:       r.Label,
		DayOfWeek:   time.Weekday(r.DayOfWeek),
		StartMinute: start,
		EndMinute:   end,
		Price:       r.PricePerSlot,
	}, nil
}

// CourtBlackout is an administratively blocked interval on a court.
type CourtBlackout struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CourtID       uuid.UUID `json:"court_id" gorm:"type:uuid;not null;index"`
	StartDatetime time.Time `json:"start_datetime" gorm:"not null"`
	EndDatetime   time.Time `json:"end_datetime" gorm:"not null"`
	Reason        string    `json:"reason" gorm:"type:text"`
	CreatedBy     uuid.UUID `json:"created_by" gorm:"type:uuid"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides for stable table naming.
func (Club) TableName() string           { return "clubs" }
func (ClubSettings) TableName() string   { return "club_settings" }
func (Court) TableName() string          { return "courts" }
func (OperatingHours) TableName() string { return "operating_hours" }
func (PricingRule) TableName() string    { return "pricing_rules" }
func (CourtBlackout) TableName() string  { return "court_blackouts" }

// parseClock parses an "HH:MM" wall-clock string into minutes since midnight.
func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", value)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
