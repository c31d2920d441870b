package constants

import (
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis cache keys and TTL values for the Courtly application
// Pattern: courtly:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

// Static Data (Long TTL: rarely changes)
const (
	TTL_STATIC_LONG  = 24 * time.Hour // 24 hours - for club profiles
	TTL_STATIC_SHORT = 6 * time.Hour  // 6 hours - for court inventory
)

// Semi-Static Data (Medium TTL: changes occasionally)
const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour // 2 hours - for operating hours
	TTL_SEMI_STATIC_SHORT  = 1 * time.Hour // 1 hour - for club settings and pricing rules
)

// Dynamic Data (Short TTL: changes frequently)
const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // 10 minutes - for open game listings
	TTL_DYNAMIC_SHORT  = 2 * time.Minute  // 2 minutes - for slot availability
)

// Highly Dynamic (Micro TTL: real-time sensitive)
const (
	TTL_REALTIME_MEDIUM = 1 * time.Minute // 1 minute - for waitlist positions
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "courtly"
)

// ================== CLUBS MODULE ==================

const (
	CACHE_KEY_CLUB_SETTINGS  = CACHE_PREFIX + ":clubs:settings:uuid:" // + club-id
	CACHE_KEY_CLUB_PRICING   = CACHE_PREFIX + ":clubs:pricing:uuid:"  // + club-id
	CACHE_KEY_CLUB_COURTS    = CACHE_PREFIX + ":clubs:courts:uuid:"   // + club-id
	CACHE_KEY_CLUB_HOURS     = CACHE_PREFIX + ":clubs:hours:uuid:"    // + club-id:day:N
	CACHE_KEY_COURT_BLACKOUT = CACHE_PREFIX + ":clubs:blackouts:"     // + court-id
)

const (
	TTL_CLUB_SETTINGS = TTL_SEMI_STATIC_SHORT  // 1 hour
	TTL_CLUB_PRICING  = TTL_SEMI_STATIC_SHORT  // 1 hour
	TTL_CLUB_COURTS   = TTL_STATIC_SHORT       // 6 hours
	TTL_CLUB_HOURS    = TTL_SEMI_STATIC_MEDIUM // 2 hours
)

// ================== AVAILABILITY MODULE ==================

const (
	CACHE_KEY_SLOTS_BY_DAY = CACHE_PREFIX + ":availability:slots:court:" // + court-id:date:YYYY-MM-DD
)

const (
	TTL_SLOTS_BY_DAY = TTL_DYNAMIC_SHORT // 2 minutes
)

// ================== BOOKINGS MODULE ==================

const (
	CACHE_KEY_USER_BOOKINGS  = CACHE_PREFIX + ":bookings:user:uuid:"     // + user-id
	CACHE_KEY_BOOKING_DETAIL = CACHE_PREFIX + ":bookings:detail:uuid:"   // + booking-id
	CACHE_KEY_OPEN_GAMES     = CACHE_PREFIX + ":bookings:open_games:club:" // + club-id
)

const (
	TTL_USER_BOOKINGS  = TTL_DYNAMIC_MEDIUM // 10 minutes
	TTL_BOOKING_DETAIL = TTL_DYNAMIC_MEDIUM // 10 minutes
	TTL_OPEN_GAMES     = TTL_DYNAMIC_MEDIUM // 10 minutes
)

// ================== WAITLIST MODULE ==================

const (
	CACHE_KEY_WAITLIST_POSITION = CACHE_PREFIX + ":waitlist:position:court:" // + court-id:user:user-id
)

const (
	TTL_WAITLIST_POSITION = TTL_REALTIME_MEDIUM // 1 minute
)

// ================== CACHE INVALIDATION PATTERNS ==================

// Patterns for cache invalidation (used with DeletePattern)
const (
	PATTERN_INVALIDATE_CLUB_ALL     = CACHE_PREFIX + ":clubs:*"
	PATTERN_INVALIDATE_AVAILABILITY = CACHE_PREFIX + ":availability:*"
	PATTERN_INVALIDATE_USER_ALL     = CACHE_PREFIX + ":*:user:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildClubSettingsKey(clubID string) string {
	return CACHE_KEY_CLUB_SETTINGS + clubID
}

func BuildClubPricingKey(clubID string) string {
	return CACHE_KEY_CLUB_PRICING + clubID
}

func BuildSlotsByDayKey(courtID, date string) string {
	return CACHE_KEY_SLOTS_BY_DAY + courtID + ":date:" + date
}

func BuildOpenGamesKey(clubID string) string {
	return CACHE_KEY_OPEN_GAMES + clubID
}
