package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Repository is the queue's storage contract: Redis holds the live FIFO
// ordering, Postgres holds the durable entry records.
type Repository interface {
	// Enqueue adds the user to the window's queue. Returns the 1-based
	// position, or ErrAlreadyQueued when the user is already queued.
	Enqueue(ctx context.Context, entry *Entry) (int, error)

	// PopNext atomically removes and returns the earliest-joined user in the
	// queue. Returns nil when the queue is empty.
	PopNext(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time) (*uuid.UUID, error)

	// Remove takes the user out of the live queue.
	Remove(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) error

	Position(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) (int, error)
	QueueLength(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time) (int, error)

	// Durable entry state.
	GetEntry(ctx context.Context, courtID uuid.UUID, windowStart time.Time, userID uuid.UUID, status Status) (*Entry, error)
	SetEntryStatus(ctx context.Context, entryID uuid.UUID, from, to Status, notifiedAt *time.Time) (bool, error)
	ListNotifiedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Entry, error)
	ListUserEntries(ctx context.Context, userID uuid.UUID) ([]Entry, error)
}

type repository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewRepository(db *gorm.DB, redisClient *redis.Client) Repository {
	return &repository{db: db, redis: redisClient}
}

// popScript atomically pops the lowest-score member of the queue. Running it
// as a single Lua script means two concurrent promotions can never both see
// the same head.
var popScript = redis.NewScript(`
	local entries = redis.call('ZRANGE', KEYS[1], 0, 0)
	if #entries == 0 then
		return false
	end
	redis.call('ZREM', KEYS[1], entries[1])
	return entries[1]
`)

func (r *repository) Enqueue(ctx context.Context, entry *Entry) (int, error) {
	key := QueueKey(entry.CourtID, entry.WindowStart, entry.WindowEnd)

	// Score is the join instant, so ZRANGE order is FIFO. NX keeps a rejoin
	// from refreshing an existing position.
	added, err := r.redis.ZAddNX(ctx, key, redis.Z{
		Score:  float64(entry.JoinedAt.UnixNano()),
		Member: entry.UserID.String(),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue: %w", err)
	}
	if added == 0 {
		return 0, ErrAlreadyQueued
	}
	r.redis.Expire(ctx, key, RedisKeyTTL)

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		// Keep Redis and Postgres consistent when the durable write fails.
		r.redis.ZRem(ctx, key, entry.UserID.String())
		return 0, fmt.Errorf("failed to persist waitlist entry: %w", err)
	}

	rank, err := r.redis.ZRank(ctx, key, entry.UserID.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue position: %w", err)
	}
	return int(rank) + 1, nil
}

func (r *repository) PopNext(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time) (*uuid.UUID, error) {
	key := QueueKey(courtID, windowStart, windowEnd)

	raw, err := popScript.Run(ctx, r.redis, []string{key}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop queue head: %w", err)
	}

	member, ok := raw.(string)
	if !ok {
		return nil, nil
	}
	userID, err := uuid.Parse(member)
	if err != nil {
		return nil, fmt.Errorf("corrupt queue member %q: %w", member, err)
	}
	return &userID, nil
}

func (r *repository) Remove(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) error {
	key := QueueKey(courtID, windowStart, windowEnd)
	removed, err := r.redis.ZRem(ctx, key, userID.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Position(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) (int, error) {
	key := QueueKey(courtID, windowStart, windowEnd)
	rank, err := r.redis.ZRank(ctx, key, userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read queue position: %w", err)
	}
	return int(rank) + 1, nil
}

func (r *repository) QueueLength(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time) (int, error) {
	key := QueueKey(courtID, windowStart, windowEnd)
	length, err := r.redis.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return int(length), nil
}

func (r *repository) GetEntry(ctx context.Context, courtID uuid.UUID, windowStart time.Time, userID uuid.UUID, status Status) (*Entry, error) {
	var entry Entry
	err := r.db.WithContext(ctx).
		Where("court_id = ? AND window_start = ? AND user_id = ? AND status = ?",
			courtID, windowStart, userID, status).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SetEntryStatus is a compare-and-swap so sweep replays settle to a no-op.
func (r *repository) SetEntryStatus(ctx context.Context, entryID uuid.UUID, from, to Status, notifiedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to, "updated_at": time.Now()}
	if notifiedAt != nil {
		updates["notified_at"] = *notifiedAt
	}
	result := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("id = ? AND status = ?", entryID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListNotifiedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("status = ? AND notified_at < ?", StatusNotified, cutoff).
		Order("notified_at").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListUserEntries(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []Status{StatusWaiting, StatusNotified}).
		Order("window_start").
		Find(&entries).Error
	return entries, err
}
