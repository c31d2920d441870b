package waitlist

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyQueued is returned when the user already holds an outstanding
	// entry for the same (court, window).
	ErrAlreadyQueued = errors.New("user already on waitlist for window")

	// ErrNotFound is returned when no entry exists for the lookup.
	ErrNotFound = errors.New("waitlist entry not found")
)

// Status tracks one entry's journey through the queue.
type Status string

const (
	// StatusWaiting: queued, not yet offered a slot.
	StatusWaiting Status = "waiting"
	// StatusNotified: offered the vacated slot, grace period running.
	StatusNotified Status = "notified"
	// StatusConverted: claimed the slot within the grace period.
	StatusConverted Status = "converted"
	// StatusExpired: grace period lapsed without a claim.
	StatusExpired Status = "expired"
	// StatusLeft: removed themselves before being offered anything.
	StatusLeft Status = "left"
)

// Entry is the durable record of one user's interest in one court window.
// The live queue ordering is held in Redis; rows here are the audit trail and
// the source for grace-period expiry sweeps.
type Entry struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CourtID     uuid.UUID  `json:"court_id" gorm:"type:uuid;not null;index:idx_waitlist_window"`
	WindowStart time.Time  `json:"window_start" gorm:"not null;index:idx_waitlist_window"`
	WindowEnd   time.Time  `json:"window_end" gorm:"not null"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Status      Status     `json:"status" gorm:"type:varchar(12);not null;default:'waiting'"`
	JoinedAt    time.Time  `json:"joined_at" gorm:"not null"`
	NotifiedAt  *time.Time `json:"notified_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Entry) TableName() string { return "waitlist_entries" }

// QueueKey is the Redis sorted-set key for one (court, window) queue.
func QueueKey(courtID uuid.UUID, windowStart, windowEnd time.Time) string {
	return fmt.Sprintf("waitlist:queue:%s:%d:%d", courtID, windowStart.Unix(), windowEnd.Unix())
}

// RedisKeyTTL bounds how long an idle queue key lives; windows in the past
// have no value.
const RedisKeyTTL = 14 * 24 * time.Hour
