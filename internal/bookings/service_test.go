package bookings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtly/internal/availability"
	"courtly/internal/clubs"
	"courtly/internal/pricing"
	"courtly/internal/schedule"
	"courtly/internal/users"
	"courtly/pkg/cache"
)

// fixedNow is a Tuesday at 10:00 UTC.
var fixedNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func defaultSettings(clubID uuid.UUID) *clubs.ClubSettings {
	return &clubs.ClubSettings{
		ClubID:                    clubID,
		BookingDurationMinutes:    90,
		MaxAdvanceBookingDays:     14,
		MinBookingNoticeHours:     2,
		SkillLevelMin:             1.0,
		SkillLevelMax:             7.0,
		SkillRangeAllowed:         1.5,
		OpenGamesEnabled:          true,
		MinPlayersToConfirm:       4,
		CancellationNoticeHours:   48,
		CancellationRefundPct:     100,
		LateCancellationRefundPct: 0,
		ReminderHoursBefore:       24,
		WaitlistEnabled:           true,
		OffPeakPrice:              18.00,
		DaylightEndTime:           "18:00",
	}
}

// memoryRepo is an in-memory Repository honouring the same contracts as the
// gorm implementation, minus the row locks (tests are single-goroutine except
// where noted, and the concurrent case uses the mutex the same way).
type memoryRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
	players  map[uuid.UUID][]BookingPlayer
	invites  map[uuid.UUID]*Invite
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		bookings: make(map[uuid.UUID]*Booking),
		players:  make(map[uuid.UUID][]BookingPlayer),
		invites:  make(map[uuid.UUID]*Invite),
	}
}

func (m *memoryRepo) CreateBookingChecked(ctx context.Context, booking *Booking, organiser *BookingPlayer, blackouts []schedule.Interval) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range blackouts {
		if schedule.Overlaps(booking.StartDatetime, booking.EndDatetime, b.Start, b.End) {
			return ErrSlotConflict
		}
	}
	for _, existing := range m.bookings {
		if existing.CourtID == booking.CourtID && existing.Status.IsActive() &&
			schedule.Overlaps(booking.StartDatetime, booking.EndDatetime, existing.StartDatetime, existing.EndDatetime) {
			return ErrSlotConflict
		}
	}

	booking.ID = uuid.New()
	organiser.ID = uuid.New()
	organiser.BookingID = booking.ID
	organiser.CreatedAt = time.Now()
	m.bookings[booking.ID] = booking
	m.players[booking.ID] = []BookingPlayer{*organiser}
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *booking
	copied.Players = append([]BookingPlayer(nil), m.players[id]...)
	return &copied, nil
}

func (m *memoryRepo) GetPlayers(ctx context.Context, bookingID uuid.UUID) ([]BookingPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BookingPlayer(nil), m.players[bookingID]...), nil
}

func (m *memoryRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, updates map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	booking.Status = to
	return true, nil
}

func (m *memoryRepo) AddPlayerChecked(ctx context.Context, bookingID uuid.UUID, player *BookingPlayer, minPlayersToConfirm int, requireOpen bool) (*Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[bookingID]
	if !ok {
		return nil, false, ErrNotFound
	}
	if requireOpen && !booking.IsOpenGame {
		return nil, false, ErrNotOpenGame
	}
	if !booking.Status.IsActive() {
		return nil, false, ErrInvalidTransition
	}

	current := m.players[bookingID]
	for i := range current {
		if current[i].UserID == player.UserID {
			return nil, false, ErrAlreadyJoined
		}
	}
	if len(current) >= booking.MaxPlayers {
		return nil, false, ErrGameFull
	}

	player.ID = uuid.New()
	player.BookingID = bookingID
	player.CreatedAt = time.Now()
	current = append(current, *player)

	shares := SplitEqual(booking.TotalPrice, len(current))
	for i := range current {
		current[i].AmountDue = shares[i]
	}
	m.players[bookingID] = current

	confirmedNow := false
	if booking.IsOpenGame && booking.Status == StatusPending && len(current) >= minPlayersToConfirm {
		booking.Status = StatusConfirmed
		confirmedNow = true
	}

	copied := *booking
	copied.Players = append([]BookingPlayer(nil), current...)
	return &copied, confirmedNow, nil
}

func (m *memoryRepo) SetPlayerPaymentStatus(ctx context.Context, bookingID, userID uuid.UUID, status PlayerPaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.players[bookingID]
	for i := range current {
		if current[i].UserID == userID {
			if current[i].PaymentStatus == status {
				return false, nil
			}
			current[i].PaymentStatus = status
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) ApplyDiscount(ctx context.Context, bookingID uuid.UUID, amount float64, note string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	if !booking.Status.IsActive() {
		return nil, ErrInvalidTransition
	}
	if amount > booking.TotalPrice+0.005 {
		return nil, PolicyError("discount_amount", "discount exceeds booking total")
	}

	players := m.players[bookingID]
	newTotal := RoundMoney(booking.TotalPrice - amount)

	var paid float64
	var unpaid []int
	for i := range players {
		switch players[i].PaymentStatus {
		case PaymentPaid:
			paid += players[i].AmountDue
		case PaymentPending:
			unpaid = append(unpaid, i)
		}
	}
	remaining := RoundMoney(newTotal - paid)
	if remaining < 0 {
		remaining = 0
	}
	if len(unpaid) > 0 {
		shares := SplitEqual(remaining, len(unpaid))
		for n, i := range unpaid {
			players[i].AmountDue = shares[n]
		}
	}

	booking.TotalPrice = newTotal
	if booking.Notes != "" {
		booking.Notes += "\n"
	}
	booking.Notes += note
	m.players[bookingID] = players

	copied := *booking
	copied.Players = append([]BookingPlayer(nil), players...)
	return &copied, nil
}

func (m *memoryRepo) AllPlayersPaid(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players[bookingID] {
		if p.PaymentStatus != PaymentPaid {
			return false, nil
		}
	}
	return true, nil
}

func (m *memoryRepo) CountActiveInWeek(ctx context.Context, userID uuid.UUID, weekStart, weekEnd time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, b := range m.bookings {
		if b.CreatedByUserID == userID && b.Status != StatusCancelled &&
			!b.StartDatetime.Before(weekStart) && b.StartDatetime.Before(weekEnd) {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) GetUserBookings(ctx context.Context, userID uuid.UUID, upcomingOnly bool, now time.Time) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Booking
	for id, players := range m.players {
		for i := range players {
			if players[i].UserID != userID {
				continue
			}
			b := *m.bookings[id]
			if upcomingOnly && b.StartDatetime.Before(now) {
				break
			}
			b.Players = append([]BookingPlayer(nil), players...)
			result = append(result, b)
			break
		}
	}
	return result, nil
}

func (m *memoryRepo) BusyIntervals(ctx context.Context, courtID uuid.UUID, from, to time.Time) ([]schedule.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var busy []schedule.Interval
	for _, b := range m.bookings {
		if b.CourtID == courtID && b.Status.IsActive() &&
			schedule.Overlaps(from, to, b.StartDatetime, b.EndDatetime) {
			busy = append(busy, schedule.Interval{Start: b.StartDatetime, End: b.EndDatetime})
		}
	}
	return busy, nil
}

func (m *memoryRepo) OverlappingBookingIDs(ctx context.Context, courtID uuid.UUID, start, end time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, b := range m.bookings {
		if b.CourtID == courtID && b.Status.IsActive() &&
			schedule.Overlaps(start, end, b.StartDatetime, b.EndDatetime) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryRepo) ListOpenGames(ctx context.Context, clubID uuid.UUID, from, to *time.Time) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Booking
	for id, b := range m.bookings {
		if b.ClubID != clubID || !b.IsOpenGame || !b.Status.IsActive() {
			continue
		}
		if from != nil && b.StartDatetime.Before(*from) {
			continue
		}
		if to != nil && !b.StartDatetime.Before(*to) {
			continue
		}
		copied := *b
		copied.Players = append([]BookingPlayer(nil), m.players[id]...)
		result = append(result, copied)
	}
	return result, nil
}

func (m *memoryRepo) ListPendingOpenGames(ctx context.Context) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Booking
	for id, b := range m.bookings {
		if b.IsOpenGame && b.Status == StatusPending {
			copied := *b
			copied.Players = append([]BookingPlayer(nil), m.players[id]...)
			result = append(result, copied)
		}
	}
	return result, nil
}

func (m *memoryRepo) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Booking
	for _, b := range m.bookings {
		if b.Status == StatusConfirmed && b.EndDatetime.Before(cutoff) {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *memoryRepo) ListDueForReminder(ctx context.Context, from, to time.Time) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Booking
	for id, b := range m.bookings {
		if b.Status == StatusConfirmed && b.ReminderSentAt == nil &&
			!b.StartDatetime.Before(from) && b.StartDatetime.Before(to) {
			copied := *b
			copied.Players = append([]BookingPlayer(nil), m.players[id]...)
			result = append(result, copied)
		}
	}
	return result, nil
}

func (m *memoryRepo) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		b.ReminderSentAt = &at
	}
	return nil
}

func (m *memoryRepo) CreateInvite(ctx context.Context, invite *Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invite.ID = uuid.New()
	m.invites[invite.ID] = invite
	return nil
}

func (m *memoryRepo) GetInvite(ctx context.Context, id uuid.UUID) (*Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invite, ok := m.invites[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *invite
	return &copied, nil
}

func (m *memoryRepo) UpdateInviteStatus(ctx context.Context, id uuid.UUID, from, to InviteStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invite, ok := m.invites[id]
	if !ok || invite.Status != from {
		return false, nil
	}
	invite.Status = to
	return true, nil
}

// fakeClubService serves fixed configuration.
type fakeClubService struct {
	settings *clubs.ClubSettings
	courts   map[uuid.UUID]*clubs.Court
	hours    map[int]*clubs.OperatingHours
	rules    []pricing.Rule
}

func (f *fakeClubService) SetCacheService(cache.Service) {}

func (f *fakeClubService) GetSettings(ctx context.Context, clubID uuid.UUID) (*clubs.ClubSettings, error) {
	return f.settings, nil
}

func (f *fakeClubService) UpdateSettings(ctx context.Context, settings *clubs.ClubSettings) error {
	f.settings = settings
	return nil
}

func (f *fakeClubService) GetCourt(ctx context.Context, courtID uuid.UUID) (*clubs.Court, error) {
	court, ok := f.courts[courtID]
	if !ok {
		return nil, clubs.ErrNotFound
	}
	return court, nil
}

func (f *fakeClubService) GetCourtsByClub(ctx context.Context, clubID uuid.UUID) ([]clubs.Court, error) {
	var result []clubs.Court
	for _, c := range f.courts {
		result = append(result, *c)
	}
	return result, nil
}

func (f *fakeClubService) GetOperatingHours(ctx context.Context, clubID uuid.UUID, dayOfWeek int) (*clubs.OperatingHours, error) {
	h, ok := f.hours[dayOfWeek]
	if !ok {
		return nil, clubs.ErrNoOperatingHours
	}
	return h, nil
}

func (f *fakeClubService) ReplaceOperatingHours(ctx context.Context, clubID uuid.UUID, hours []clubs.OperatingHours) error {
	return nil
}

func (f *fakeClubService) GetResolverRules(ctx context.Context, clubID uuid.UUID) ([]pricing.Rule, error) {
	return f.rules, nil
}

func (f *fakeClubService) ReplacePricingRules(ctx context.Context, clubID uuid.UUID, rules []clubs.PricingRule) error {
	return nil
}

func (f *fakeClubService) GetBlackouts(ctx context.Context, courtID uuid.UUID) ([]clubs.CourtBlackout, error) {
	return nil, nil
}

func (f *fakeClubService) CreateBlackout(ctx context.Context, blackout *clubs.CourtBlackout) (*clubs.BlackoutResult, error) {
	return &clubs.BlackoutResult{Blackout: blackout}, nil
}

// fakeUserRepo serves fixed users.
type fakeUserRepo struct {
	users map[uuid.UUID]*users.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]users.User, error) {
	var result []users.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

// recordingDispatcher captures emitted events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingDispatcher) Emit(ctx context.Context, eventType string, payload map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return nil
}

func (r *recordingDispatcher) Close() error { return nil }

func (r *recordingDispatcher) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == eventType {
			n++
		}
	}
	return n
}

// recordingSettlement captures refund requests.
type recordingSettlement struct {
	mu      sync.Mutex
	refunds []float64
}

func (r *recordingSettlement) RefundPlayer(ctx context.Context, bookingID, userID uuid.UUID, amount float64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunds = append(r.refunds, amount)
	return nil
}

// recordingWaitlist captures promote calls.
type recordingWaitlist struct {
	promoted int
	nextUser *uuid.UUID
}

func (r *recordingWaitlist) Join(ctx context.Context, courtID uuid.UUID, start, end time.Time, userID uuid.UUID) (int, error) {
	return 1, nil
}

func (r *recordingWaitlist) Promote(ctx context.Context, courtID uuid.UUID, start, end time.Time) (*uuid.UUID, error) {
	r.promoted++
	return r.nextUser, nil
}

type fixture struct {
	service    Service
	repo       *memoryRepo
	clubSvc    *fakeClubService
	userRepo   *fakeUserRepo
	dispatcher *recordingDispatcher
	settlement *recordingSettlement
	waitlist   *recordingWaitlist
	clubID     uuid.UUID
	courtID    uuid.UUID
	organiser  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clubID := uuid.New()
	courtID := uuid.New()
	organiser := uuid.New()

	clubSvc := &fakeClubService{
		settings: defaultSettings(clubID),
		courts: map[uuid.UUID]*clubs.Court{
			courtID: {ID: courtID, ClubID: clubID, Name: "Court 1", SurfaceType: clubs.SurfaceIndoor, IsActive: true},
		},
		hours: map[int]*clubs.OperatingHours{},
	}
	for day := 0; day <= 6; day++ {
		clubSvc.hours[day] = &clubs.OperatingHours{ClubID: clubID, DayOfWeek: day, OpenTime: "07:00", CloseTime: "22:00"}
	}

	skill := func(v float64) *float64 { return &v }
	userRepo := &fakeUserRepo{users: map[uuid.UUID]*users.User{
		organiser: {ID: organiser, SkillLevel: skill(4.0), IsActive: true},
	}}

	repo := newMemoryRepo()
	dispatcher := &recordingDispatcher{}
	availabilitySvc := availability.NewService(clubSvc, repo)
	availabilitySvc.SetClock(func() time.Time { return fixedNow })

	svc := NewService(repo, clubSvc, userRepo, availabilitySvc, dispatcher)
	svc.SetClock(func() time.Time { return fixedNow })

	settlement := &recordingSettlement{}
	waitlist := &recordingWaitlist{}
	svc.SetSettlementService(settlement)
	svc.SetWaitlistService(waitlist)

	return &fixture{
		service:    svc,
		repo:       repo,
		clubSvc:    clubSvc,
		userRepo:   userRepo,
		dispatcher: dispatcher,
		settlement: settlement,
		waitlist:   waitlist,
		clubID:     clubID,
		courtID:    courtID,
		organiser:  organiser,
	}
}

func (f *fixture) addUser(skillLevel float64) uuid.UUID {
	id := uuid.New()
	f.userRepo.users[id] = &users.User{ID: id, SkillLevel: &skillLevel, IsActive: true}
	return id
}

func (f *fixture) createRequest(start time.Time, openGame bool) *CreateBookingRequest {
	return &CreateBookingRequest{
		ClubID:      f.clubID.String(),
		CourtID:     f.courtID.String(),
		BookingType: string(TypeRegular),
		Start:       start,
		MaxPlayers:  4,
		IsOpenGame:  openGame,
	}
}

func TestCreateOpenGame(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Add(24 * time.Hour).Truncate(time.Hour) // 10:00 next day

	resp, err := f.service.Create(context.Background(), f.createRequest(start, true), f.organiser)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, resp.Status)
	assert.Equal(t, 18.00, resp.TotalPrice) // off-peak fallback, no lighting
	require.Len(t, resp.Players, 1)
	assert.Equal(t, RoleOrganiser, resp.Players[0].Role)
	assert.Equal(t, 4.50, resp.Players[0].AmountDue) // total / max_players
	assert.Equal(t, 1, f.dispatcher.count("booking.created"))
}

func TestCreateRegularBookingOwesFullPrice(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Add(24 * time.Hour)

	resp, err := f.service.Create(context.Background(), f.createRequest(start, false), f.organiser)
	require.NoError(t, err)
	require.Len(t, resp.Players, 1)
	assert.Equal(t, resp.TotalPrice, resp.Players[0].AmountDue)
}

func TestCreatePolicyViolations(t *testing.T) {
	f := newFixture(t)

	t.Run("notice period", func(t *testing.T) {
		_, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(time.Hour), false), f.organiser)
		assert.ErrorIs(t, err, ErrPolicyViolation)
	})

	t.Run("advance window", func(t *testing.T) {
		_, err := f.service.Create(context.Background(), f.createRequest(fixedNow.AddDate(0, 0, 20), false), f.organiser)
		assert.ErrorIs(t, err, ErrPolicyViolation)
	})

	t.Run("outside operating hours", func(t *testing.T) {
		midnight := fixedNow.Add(24 * time.Hour).Truncate(24 * time.Hour).Add(5 * time.Hour)
		_, err := f.service.Create(context.Background(), f.createRequest(midnight, false), f.organiser)
		assert.ErrorIs(t, err, ErrPolicyViolation)
	})

	t.Run("custom duration on regular booking", func(t *testing.T) {
		req := f.createRequest(fixedNow.Add(24*time.Hour), false)
		end := req.Start.Add(3 * time.Hour)
		req.End = &end
		_, err := f.service.Create(context.Background(), req, f.organiser)
		assert.ErrorIs(t, err, ErrPolicyViolation)
	})

	t.Run("custom duration allowed for tournaments", func(t *testing.T) {
		req := f.createRequest(fixedNow.Add(48*time.Hour), false)
		req.BookingType = string(TypeTournament)
		end := req.Start.Add(3 * time.Hour)
		req.End = &end
		_, err := f.service.Create(context.Background(), req, f.organiser)
		assert.NoError(t, err)
	})
}

func TestCreateWeeklyCap(t *testing.T) {
	f := newFixture(t)
	limit := 1
	f.clubSvc.settings.MaxBookingsPerPlayerPerWeek = &limit

	first := f.createRequest(fixedNow.Add(24*time.Hour), false)
	_, err := f.service.Create(context.Background(), first, f.organiser)
	require.NoError(t, err)

	second := f.createRequest(fixedNow.Add(48*time.Hour), false)
	_, err = f.service.Create(context.Background(), second, f.organiser)
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestCreateSlotConflict(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Add(24 * time.Hour)

	_, err := f.service.Create(context.Background(), f.createRequest(start, false), f.organiser)
	require.NoError(t, err)

	other := f.addUser(4.0)
	_, err = f.service.Create(context.Background(), f.createRequest(start.Add(30*time.Minute), false), other)
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestConcurrentCreatesOneWinner(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Add(24 * time.Hour)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := uuid.New()
			_, errs[i] = f.service.Create(context.Background(), f.createRequest(start, false), user)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSlotConflict)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestJoinOpenGameQuorum(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Add(24 * time.Hour)
	resp, err := f.service.Create(context.Background(), f.createRequest(start, true), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)

	for i := 0; i < 2; i++ {
		joiner := f.addUser(4.5)
		resp, err = f.service.JoinOpenGame(context.Background(), bookingID, joiner)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, resp.Status)
	}

	last := f.addUser(3.5)
	resp, err = f.service.JoinOpenGame(context.Background(), bookingID, last)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, resp.Status)
	require.Len(t, resp.Players, 4)
	var sum float64
	for _, p := range resp.Players {
		assert.Equal(t, 4.50, p.AmountDue) // 18.00 / 4
		sum += p.AmountDue
	}
	assert.InDelta(t, resp.TotalPrice, sum, 0.01)
	assert.Equal(t, 1, f.dispatcher.count("booking.confirmed"))
}

func TestJoinOpenGameRejections(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Add(24 * time.Hour)
	resp, err := f.service.Create(context.Background(), f.createRequest(start, true), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)

	t.Run("skill mismatch", func(t *testing.T) {
		outlier := f.addUser(6.5) // organiser is 4.0, allowed range 1.5
		_, err := f.service.JoinOpenGame(context.Background(), bookingID, outlier)
		assert.ErrorIs(t, err, ErrSkillMismatch)
	})

	t.Run("double join", func(t *testing.T) {
		_, err := f.service.JoinOpenGame(context.Background(), bookingID, f.organiser)
		assert.ErrorIs(t, err, ErrAlreadyJoined)
	})

	t.Run("game full", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := f.service.JoinOpenGame(context.Background(), bookingID, f.addUser(4.0))
			require.NoError(t, err)
		}
		_, err := f.service.JoinOpenGame(context.Background(), bookingID, f.addUser(4.0))
		assert.ErrorIs(t, err, ErrGameFull)
	})

	t.Run("not an open game", func(t *testing.T) {
		closed, err := f.service.Create(context.Background(), f.createRequest(start.Add(4*time.Hour), false), f.organiser)
		require.NoError(t, err)
		_, err = f.service.JoinOpenGame(context.Background(), uuid.MustParse(closed.ID), f.addUser(4.0))
		assert.ErrorIs(t, err, ErrNotOpenGame)
	})
}

func TestInviteFlow(t *testing.T) {
	f := newFixture(t)
	start := fixedNow.Add(24 * time.Hour)
	resp, err := f.service.Create(context.Background(), f.createRequest(start, false), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)

	// Skill is far outside the open-game range; invites skip that check.
	invitee := f.addUser(7.0)

	t.Run("outsider cannot invite", func(t *testing.T) {
		_, err := f.service.Invite(context.Background(), bookingID, uuid.New(), &InviteRequest{InviteeID: invitee.String()})
		assert.ErrorIs(t, err, ErrNotAuthorised)
	})

	invite, err := f.service.Invite(context.Background(), bookingID, f.organiser, &InviteRequest{InviteeID: invitee.String()})
	require.NoError(t, err)
	assert.Equal(t, InvitePending, invite.Status)

	t.Run("wrong invitee cannot answer", func(t *testing.T) {
		_, err := f.service.RespondToInvite(context.Background(), invite.ID, uuid.New(), true)
		assert.ErrorIs(t, err, ErrNotAuthorised)
	})

	updated, err := f.service.RespondToInvite(context.Background(), invite.ID, invitee, true)
	require.NoError(t, err)
	require.Len(t, updated.Players, 2)
	assert.InDelta(t, updated.TotalPrice, updated.Players[0].AmountDue+updated.Players[1].AmountDue, 0.01)

	t.Run("accept is single-shot", func(t *testing.T) {
		_, err := f.service.RespondToInvite(context.Background(), invite.ID, invitee, true)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestCancelRefundTiers(t *testing.T) {
	t.Run("outside notice window refunds in full", func(t *testing.T) {
		f := newFixture(t)
		start := fixedNow.Add(72 * time.Hour)
		resp, err := f.service.Create(context.Background(), f.createRequest(start, false), f.organiser)
		require.NoError(t, err)
		bookingID := uuid.MustParse(resp.ID)

		_, err = f.service.MarkPlayerPaid(context.Background(), bookingID, f.organiser)
		require.NoError(t, err)

		cancelled, err := f.service.Cancel(context.Background(), bookingID, f.organiser, false, "plans changed")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		require.Len(t, f.settlement.refunds, 1)
		assert.Equal(t, 18.00, f.settlement.refunds[0])
	})

	t.Run("inside notice window applies late percentage", func(t *testing.T) {
		f := newFixture(t)
		f.clubSvc.settings.MinBookingNoticeHours = 0
		start := fixedNow.Add(2 * time.Hour)
		resp, err := f.service.Create(context.Background(), f.createRequest(start, false), f.organiser)
		require.NoError(t, err)
		bookingID := uuid.MustParse(resp.ID)

		_, err = f.service.MarkPlayerPaid(context.Background(), bookingID, f.organiser)
		require.NoError(t, err)

		cancelled, err := f.service.Cancel(context.Background(), bookingID, f.organiser, false, "too late")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.Empty(t, f.settlement.refunds) // late pct defaults to 0
	})

	t.Run("cancellation promotes the waitlist", func(t *testing.T) {
		f := newFixture(t)
		next := uuid.New()
		f.waitlist.nextUser = &next
		resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(72*time.Hour), false), f.organiser)
		require.NoError(t, err)

		_, err = f.service.Cancel(context.Background(), uuid.MustParse(resp.ID), f.organiser, false, "")
		require.NoError(t, err)
		assert.Equal(t, 1, f.waitlist.promoted)
		assert.Equal(t, 1, f.dispatcher.count("waitlist.slot_available"))
	})

	t.Run("terminal bookings cannot be cancelled", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(72*time.Hour), false), f.organiser)
		require.NoError(t, err)
		bookingID := uuid.MustParse(resp.ID)

		_, err = f.service.Cancel(context.Background(), bookingID, f.organiser, false, "")
		require.NoError(t, err)
		_, err = f.service.Cancel(context.Background(), bookingID, f.organiser, false, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("strangers cannot cancel", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(72*time.Hour), false), f.organiser)
		require.NoError(t, err)

		_, err = f.service.Cancel(context.Background(), uuid.MustParse(resp.ID), uuid.New(), false, "")
		assert.ErrorIs(t, err, ErrNotAuthorised)
	})
}

func TestApplyDiscountResplitsUnpaidShares(t *testing.T) {
	f := newFixture(t)
	staff := uuid.New()
	resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(24*time.Hour), true), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)

	for i := 0; i < 2; i++ {
		_, err := f.service.JoinOpenGame(context.Background(), bookingID, f.addUser(4.0))
		require.NoError(t, err)
	}

	// Organiser has settled a 6.00 share of the 18.00 total.
	_, err = f.service.MarkPlayerPaid(context.Background(), bookingID, f.organiser)
	require.NoError(t, err)

	discounted, err := f.service.ApplyDiscount(context.Background(), bookingID, staff,
		&DiscountRequest{Amount: 6.00, Reason: "loyalty voucher"})
	require.NoError(t, err)

	assert.Equal(t, 12.00, discounted.TotalPrice)
	for _, p := range discounted.Players {
		if p.PaymentStatus == PaymentPaid {
			assert.Equal(t, 6.00, p.AmountDue) // settled money stays put
		} else {
			assert.Equal(t, 3.00, p.AmountDue) // remaining 6.00 over two players
		}
	}
	assert.Equal(t, 1, f.dispatcher.count("booking.discount_applied"))

	stored, err := f.repo.GetByID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Contains(t, stored.Notes, "loyalty voucher")
}

func TestApplyDiscountRejections(t *testing.T) {
	f := newFixture(t)
	staff := uuid.New()
	resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(24*time.Hour), false), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)

	t.Run("exceeds booking total", func(t *testing.T) {
		_, err := f.service.ApplyDiscount(context.Background(), bookingID, staff,
			&DiscountRequest{Amount: 100.00})
		assert.ErrorIs(t, err, ErrPolicyViolation)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := f.service.ApplyDiscount(context.Background(), bookingID, staff,
			&DiscountRequest{Amount: 0})
		assert.ErrorIs(t, err, ErrPolicyViolation)
	})

	t.Run("cancelled booking", func(t *testing.T) {
		_, err := f.service.Cancel(context.Background(), bookingID, f.organiser, false, "")
		require.NoError(t, err)
		_, err = f.service.ApplyDiscount(context.Background(), bookingID, staff,
			&DiscountRequest{Amount: 5.00})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestAutoCancelUnderfilled(t *testing.T) {
	f := newFixture(t)
	hours := 12
	f.clubSvc.settings.AutoCancelHoursBefore = &hours

	// Starts in 4 hours with 1 of 4 players: past the 12-hour deadline.
	resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(4*time.Hour), true), f.organiser)
	require.NoError(t, err)

	// Starts in 48 hours: deadline not reached yet.
	safe, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(48*time.Hour), true), f.organiser)
	require.NoError(t, err)

	n, err := f.service.AutoCancelUnderfilled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cancelled, err := f.repo.GetByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	untouched, err := f.repo.GetByID(context.Background(), uuid.MustParse(safe.ID))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, untouched.Status)
}

func TestAutoCancelLongLeadTime(t *testing.T) {
	f := newFixture(t)
	hours := 96
	f.clubSvc.settings.AutoCancelHoursBefore = &hours

	// Starts in 80 hours with 1 of 4 players: already past a 96-hour deadline.
	resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(80*time.Hour), true), f.organiser)
	require.NoError(t, err)

	n, err := f.service.AutoCancelUnderfilled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cancelled, err := f.repo.GetByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestCompleteExpiredIdempotent(t *testing.T) {
	f := newFixture(t)
	resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(24*time.Hour), false), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)

	_, err = f.service.MarkPlayerPaid(context.Background(), bookingID, f.organiser)
	require.NoError(t, err)

	// Move the clock past the booking's end.
	f.service.SetClock(func() time.Time { return fixedNow.Add(30 * time.Hour) })

	n, err := f.service.CompleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.service.CompleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	final, err := f.repo.GetByID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
}

func TestMarkPlayerPaidConfirmsOnce(t *testing.T) {
	f := newFixture(t)
	resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(24*time.Hour), false), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)

	confirmed, err := f.service.MarkPlayerPaid(context.Background(), bookingID, f.organiser)
	require.NoError(t, err)
	assert.True(t, confirmed)

	// Replayed gateway event: no state change, no second confirmation.
	confirmed, err = f.service.MarkPlayerPaid(context.Background(), bookingID, f.organiser)
	require.NoError(t, err)
	assert.False(t, confirmed)
	assert.Equal(t, 1, f.dispatcher.count("booking.confirmed"))
}

func TestSendDueReminders(t *testing.T) {
	f := newFixture(t)
	resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(12*time.Hour), false), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)
	_, err = f.service.MarkPlayerPaid(context.Background(), bookingID, f.organiser)
	require.NoError(t, err)

	n, err := f.service.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.dispatcher.count("booking.reminder_due"))

	// The sent marker stops replays.
	n, err = f.service.SendDueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestJoinWaitlistRespectsClubSetting(t *testing.T) {
	f := newFixture(t)
	resp, err := f.service.Create(context.Background(), f.createRequest(fixedNow.Add(24*time.Hour), true), f.organiser)
	require.NoError(t, err)
	bookingID := uuid.MustParse(resp.ID)

	pos, err := f.service.JoinWaitlist(context.Background(), bookingID, f.addUser(4.0))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	f.clubSvc.settings.WaitlistEnabled = false
	_, err = f.service.JoinWaitlist(context.Background(), bookingID, f.addUser(4.0))
	assert.ErrorIs(t, err, ErrWaitlistDisabled)
}
