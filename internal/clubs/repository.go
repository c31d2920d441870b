package clubs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetClub(ctx context.Context, id uuid.UUID) (*Club, error)
	GetSettings(ctx context.Context, clubID uuid.UUID) (*ClubSettings, error)
	UpdateSettings(ctx context.Context, settings *ClubSettings) error

	GetCourt(ctx context.Context, id uuid.UUID) (*Court, error)
	GetCourtsByClub(ctx context.Context, clubID uuid.UUID) ([]Court, error)

	GetOperatingHours(ctx context.Context, clubID uuid.UUID, dayOfWeek int) (*OperatingHours, error)
	ReplaceOperatingHours(ctx context.Context, clubID uuid.UUID, hours []OperatingHours) error

	GetPricingRules(ctx context.Context, clubID uuid.UUID) ([]PricingRule, error)
	ReplacePricingRules(ctx context.Context, clubID uuid.UUID, rules []PricingRule) error

	GetBlackouts(ctx context.Context, courtID uuid.UUID) ([]CourtBlackout, error)
	CreateBlackout(ctx context.Context, blackout *CourtBlackout) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetClub(ctx context.Context, id uuid.UUID) (*Club, error) {
	var club Club
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&club).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("club %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *repository) GetSettings(ctx context.Context, clubID uuid.UUID) (*ClubSettings, error) {
	var settings ClubSettings
	err := r.db.WithContext(ctx).Where("club_id = ?", clubID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("settings for club %s: %w", clubID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repository) UpdateSettings(ctx context.Context, settings *ClubSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

func (r *repository) GetCourt(ctx context.Context, id uuid.UUID) (*Court, error) {
	var court Court
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&court).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("court %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &court, nil
}

func (r *repository) GetCourtsByClub(ctx context.Context, clubID uuid.UUID) ([]Court, error) {
	var courts []Court
	err := r.db.WithContext(ctx).
		Where("club_id = ? AND is_active = ?", clubID, true).
		Order("name").
		Find(&courts).Error
	return courts, err
}

func (r *repository) GetOperatingHours(ctx context.Context, clubID uuid.UUID, dayOfWeek int) (*OperatingHours, error) {
	var hours OperatingHours
	err := r.db.WithContext(ctx).
		Where("club_id = ? AND day_of_week = ?", clubID, dayOfWeek).
		First(&hours).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("club %s day %d: %w", clubID, dayOfWeek, ErrNoOperatingHours)
	}
	if err != nil {
		return nil, err
	}
	return &hours, nil
}

// ReplaceOperatingHours swaps the full weekly schedule in one transaction so a
// partially written week is never observable.
func (r *repository) ReplaceOperatingHours(ctx context.Context, clubID uuid.UUID, hours []OperatingHours) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("club_id = ?", clubID).Delete(&OperatingHours{}).Error; err != nil {
			return fmt.Errorf("failed to clear operating hours: %w", err)
		}
		if len(hours) == 0 {
			return nil
		}
		return tx.Create(&hours).Error
	})
}

func (r *repository) GetPricingRules(ctx context.Context, clubID uuid.UUID) ([]PricingRule, error) {
	var rules []PricingRule
	err := r.db.WithContext(ctx).
		Where("club_id = ?", clubID).
		Order("day_of_week, start_time").
		Find(&rules).Error
	return rules, err
}

func (r *repository) ReplacePricingRules(ctx context.Context, clubID uuid.UUID, rules []PricingRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("club_id = ?", clubID).Delete(&PricingRule{}).Error; err != nil {
			return fmt.Errorf("failed to clear pricing rules: %w", err)
		}
		if len(rules) == 0 {
			return nil
		}
		return tx.Create(&rules).Error
	})
}

func (r *repository) GetBlackouts(ctx context.Context, courtID uuid.UUID) ([]CourtBlackout, error) {
	var blackouts []CourtBlackout
	err := r.db.WithContext(ctx).
		Where("court_id = ?", courtID).
		Order("start_datetime").
		Find(&blackouts).Error
	return blackouts, err
}

func (r *repository) CreateBlackout(ctx context.Context, blackout *CourtBlackout) error {
	return r.db.WithContext(ctx).Create(blackout).Error
}
