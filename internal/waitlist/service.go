package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"courtly/internal/notifications"
)

// Service is the per-window FIFO queue. Promotion only notifies: the promoted
// user still has to claim the slot themselves, and the grace-period sweep
// moves on to the next entry when they don't.
type Service interface {
	SetClock(now func() time.Time)

	Join(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) (int, error)
	Leave(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) error
	Promote(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time) (*uuid.UUID, error)

	// MarkConverted records that a notified user claimed the slot.
	MarkConverted(ctx context.Context, courtID uuid.UUID, windowStart time.Time, userID uuid.UUID) error

	// ExpireStaleNotifications lapses grace periods and promotes the next
	// entry for each affected window. Sweep entry point, idempotent.
	ExpireStaleNotifications(ctx context.Context) (int, error)

	ListUserEntries(ctx context.Context, userID uuid.UUID) ([]Entry, error)
}

type service struct {
	repo        Repository
	dispatcher  notifications.Dispatcher
	gracePeriod time.Duration
	now         func() time.Time
}

// DefaultGracePeriod is how long a promoted user has to claim the slot.
const DefaultGracePeriod = 30 * time.Minute

func NewService(repo Repository, dispatcher notifications.Dispatcher, gracePeriod time.Duration) Service {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &service{
		repo:        repo,
		dispatcher:  dispatcher,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

func (s *service) SetClock(now func() time.Time) { s.now = now }

func (s *service) Join(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) (int, error) {
	entry := &Entry{
		CourtID:     courtID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		UserID:      userID,
		Status:      StatusWaiting,
		JoinedAt:    s.now(),
	}
	position, err := s.repo.Enqueue(ctx, entry)
	if err != nil {
		return 0, err
	}
	return position, nil
}

func (s *service) Leave(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time, userID uuid.UUID) error {
	if err := s.repo.Remove(ctx, courtID, windowStart, windowEnd, userID); err != nil {
		return err
	}
	entry, err := s.repo.GetEntry(ctx, courtID, windowStart, userID, StatusWaiting)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = s.repo.SetEntryStatus(ctx, entry.ID, StatusWaiting, StatusLeft, nil)
	return err
}

// Promote pops the queue head and starts their grace period. Returns nil when
// the queue is empty, which is a normal outcome, not an error.
func (s *service) Promote(ctx context.Context, courtID uuid.UUID, windowStart, windowEnd time.Time) (*uuid.UUID, error) {
	userID, err := s.repo.PopNext(ctx, courtID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	if userID == nil {
		return nil, nil
	}

	entry, err := s.repo.GetEntry(ctx, courtID, windowStart, *userID, StatusWaiting)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Queue and durable rows disagree; the pop stands, nothing to mark.
			log.Printf("waitlist: popped user %s has no waiting entry for court %s", userID, courtID)
			return userID, nil
		}
		return nil, err
	}

	notifiedAt := s.now()
	if _, err := s.repo.SetEntryStatus(ctx, entry.ID, StatusWaiting, StatusNotified, &notifiedAt); err != nil {
		return nil, fmt.Errorf("failed to mark entry notified: %w", err)
	}
	return userID, nil
}

func (s *service) MarkConverted(ctx context.Context, courtID uuid.UUID, windowStart time.Time, userID uuid.UUID) error {
	entry, err := s.repo.GetEntry(ctx, courtID, windowStart, userID, StatusNotified)
	if err != nil {
		return err
	}
	applied, err := s.repo.SetEntryStatus(ctx, entry.ID, StatusNotified, StatusConverted, nil)
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}

func (s *service) ExpireStaleNotifications(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.gracePeriod)
	stale, err := s.repo.ListNotifiedBefore(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		entry := &stale[i]
		applied, err := s.repo.SetEntryStatus(ctx, entry.ID, StatusNotified, StatusExpired, nil)
		if err != nil {
			log.Printf("waitlist: failed to expire entry %s: %v", entry.ID, err)
			continue
		}
		if !applied {
			continue // converted or already expired by a racing sweep
		}
		expired++

		// The slot is still open; offer it to whoever is next.
		next, err := s.Promote(ctx, entry.CourtID, entry.WindowStart, entry.WindowEnd)
		if err != nil {
			log.Printf("waitlist: failed to promote after expiry on court %s: %v", entry.CourtID, err)
			continue
		}
		if next != nil {
			s.emit(ctx, notifications.EventWaitlistSlotAvailable, map[string]interface{}{
				"court_id": entry.CourtID.String(),
				"user_id":  next.String(),
				"start":    entry.WindowStart,
				"end":      entry.WindowEnd,
			})
		}
	}
	return expired, nil
}

func (s *service) ListUserEntries(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	return s.repo.ListUserEntries(ctx, userID)
}

func (s *service) emit(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Emit(ctx, eventType, payload); err != nil {
		log.Printf("failed to emit %s: %v", eventType, err)
	}
}
