package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"courtly/internal/clubs"
	"courtly/internal/payments"
	"courtly/internal/shared/config"
	"courtly/internal/shared/database"
	"courtly/internal/users"

	"github.com/google/uuid"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Courtly Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Order matters due to foreign key constraints
	// Delete in reverse dependency order
	tables := []string{
		"invoices",
		"wallet_transactions",
		"wallets",
		"payments",
		"waitlist_entries",
		"booking_invites",
		"booking_players",
		"bookings",
		"court_blackouts",
		"pricing_rules",
		"operating_hours",
		"courts",
		"club_settings",
		"clubs",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Disable foreign key constraints temporarily
	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	// Re-enable foreign key constraints
	if err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	tenantID := uuid.New()
	fmt.Printf("  🏢 Tenant: %s\n", tenantID)

	// Seed users first (no dependencies)
	userIDs, err := s.SeedUsers(tenantID)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	// Seed wallets with an opening balance so settlement flows can be exercised
	if err := s.SeedWallets(userIDs); err != nil {
		return fmt.Errorf("failed to seed wallets: %w", err)
	}

	// Seed the club with settings, courts, hours and pricing
	if err := s.SeedClub(tenantID); err != nil {
		return fmt.Errorf("failed to seed club: %w", err)
	}

	// Clear Redis cache to ensure fresh state
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedUsers creates 1 staff member and 3 players with different skill levels
func (s *Seeder) SeedUsers(tenantID uuid.UUID) (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	userIDs := make(map[string]uuid.UUID)

	skill := func(v float64) *float64 { return &v }

	usersData := []struct {
		key        string
		fullName   string
		email      string
		skillLevel *float64
	}{
		{"staff", "Front Desk", "frontdesk@courtly.test", nil},
		{"alice", "Alice Moreno", "alice@courtly.test", skill(3.5)},
		{"ben", "Ben Okafor", "ben@courtly.test", skill(4.0)},
		{"carla", "Carla Nguyen", "carla@courtly.test", skill(2.0)},
	}

	for _, userData := range usersData {
		user := users.User{
			ID:         uuid.New(),
			TenantID:   tenantID,
			Email:      userData.email,
			FullName:   userData.fullName,
			SkillLevel: userData.skillLevel,
			IsActive:   true,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userData.email, err)
		}

		userIDs[userData.key] = user.ID
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.FullName)
	}

	return userIDs, nil
}

// SeedWallets opens a wallet per player with a starting balance
func (s *Seeder) SeedWallets(userIDs map[string]uuid.UUID) error {
	fmt.Println("  💳 Seeding wallets...")

	balances := map[string]float64{
		"alice": 100.00,
		"ben":   60.00,
		"carla": 25.00,
	}

	for key, balance := range balances {
		userID, ok := userIDs[key]
		if !ok {
			continue
		}

		wallet := payments.Wallet{
			ID:        uuid.New(),
			UserID:    userID,
			Balance:   balance,
			Currency:  "GBP",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.db.PostgreSQL.Create(&wallet).Error; err != nil {
			return fmt.Errorf("failed to create wallet for %s: %w", key, err)
		}

		txn := payments.WalletTransaction{
			ID:           uuid.New(),
			WalletID:     wallet.ID,
			Type:         payments.TransactionTopUp,
			Amount:       balance,
			BalanceAfter: balance,
			Reference:    "seed opening balance",
			CreatedAt:    time.Now(),
		}
		if err := s.db.PostgreSQL.Create(&txn).Error; err != nil {
			return fmt.Errorf("failed to record opening transaction for %s: %w", key, err)
		}

		fmt.Printf("    ✅ Opened wallet for %s (%.2f GBP)\n", key, balance)
	}

	return nil
}

// SeedClub creates one club with settings, 3 courts, full-week operating hours
// and a peak/weekend pricing schedule
func (s *Seeder) SeedClub(tenantID uuid.UUID) error {
	fmt.Println("  🎾 Seeding club...")

	club := clubs.Club{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      "Riverside Padel Club",
		Address:   "14 Embankment Road, London",
		Currency:  "GBP",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.PostgreSQL.Create(&club).Error; err != nil {
		return fmt.Errorf("failed to create club: %w", err)
	}
	fmt.Printf("    ✅ Created club: %s\n", club.Name)

	maxPerWeek := 5
	autoCancelHours := 4
	settings := clubs.ClubSettings{
		ID:                          uuid.New(),
		ClubID:                      club.ID,
		BookingDurationMinutes:      90,
		MaxAdvanceBookingDays:       14,
		MinBookingNoticeHours:       2,
		MaxBookingsPerPlayerPerWeek: &maxPerWeek,
		SkillLevelMin:               1.0,
		SkillLevelMax:               7.0,
		SkillRangeAllowed:           1.5,
		OpenGamesEnabled:            true,
		MinPlayersToConfirm:         4,
		AutoCancelHoursBefore:       &autoCancelHours,
		CancellationNoticeHours:     48,
		CancellationRefundPct:       100,
		LateCancellationRefundPct:   25,
		ReminderHoursBefore:         24,
		WaitlistEnabled:             true,
		OffPeakPrice:                18.00,
		DaylightEndTime:             "18:00",
		CreatedAt:                   time.Now(),
		UpdatedAt:                   time.Now(),
	}
	if err := s.db.PostgreSQL.Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to create club settings: %w", err)
	}
	fmt.Println("    ✅ Created club settings")

	courtsData := []struct {
		name              string
		surface           clubs.SurfaceType
		hasLighting       bool
		lightingSurcharge float64
	}{
		{"Court 1", clubs.SurfaceCrystal, true, 4.00},
		{"Court 2", clubs.SurfaceCrystal, true, 4.00},
		{"Court 3", clubs.SurfaceArtificialGrass, false, 0},
	}

	for _, courtData := range courtsData {
		court := clubs.Court{
			ID:                uuid.New(),
			ClubID:            club.ID,
			Name:              courtData.name,
			SurfaceType:       courtData.surface,
			HasLighting:       courtData.hasLighting,
			LightingSurcharge: courtData.lightingSurcharge,
			IsActive:          true,
		}
		if err := s.db.PostgreSQL.Create(&court).Error; err != nil {
			return fmt.Errorf("failed to create court %s: %w", courtData.name, err)
		}
		fmt.Printf("    ✅ Created court: %s (%s)\n", court.Name, court.SurfaceType)
	}

	// Weekdays 07:00-22:30, weekends 08:00-21:00
	for day := 0; day <= 6; day++ {
		open, close := "07:00", "22:30"
		if day == 0 || day == 6 {
			open, close = "08:00", "21:00"
		}
		hours := clubs.OperatingHours{
			ID:        uuid.New(),
			ClubID:    club.ID,
			DayOfWeek: day,
			OpenTime:  open,
			CloseTime: close,
		}
		if err := s.db.PostgreSQL.Create(&hours).Error; err != nil {
			return fmt.Errorf("failed to create operating hours for day %d: %w", day, err)
		}
	}
	fmt.Println("    ✅ Created operating hours (7 days)")

	var rules []clubs.PricingRule
	// Weekday evening peak
	for day := 1; day <= 5; day++ {
		rules = append(rules, clubs.PricingRule{
			ID:           uuid.New(),
			ClubID:       club.ID,
			Label:        "weekday-peak",
			DayOfWeek:    day,
			StartTime:    "17:00",
			EndTime:      "21:00",
			PricePerSlot: 32.00,
		})
	}
	// Weekend mornings
	for _, day := range []int{0, 6} {
		rules = append(rules, clubs.PricingRule{
			ID:           uuid.New(),
			ClubID:       club.ID,
			Label:        "weekend-morning",
			DayOfWeek:    day,
			StartTime:    "08:00",
			EndTime:      "12:00",
			PricePerSlot: 26.00,
		})
	}

	for _, rule := range rules {
		if err := s.db.PostgreSQL.Create(&rule).Error; err != nil {
			return fmt.Errorf("failed to create pricing rule %s: %w", rule.Label, err)
		}
	}
	fmt.Printf("    ✅ Created %d pricing rules\n", len(rules))

	return nil
}
