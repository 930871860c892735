package booking

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayvaro/resource-reservation/internal/availability"
	"github.com/ayvaro/resource-reservation/internal/model"
	"github.com/ayvaro/resource-reservation/internal/queue"
	"github.com/ayvaro/resource-reservation/internal/repository"
)

// ---- in-memory fakes ----

type fakeRegistry struct {
	mu        sync.Mutex
	resources map[string]*model.Resource
}

func newFakeRegistry(rs ...*model.Resource) *fakeRegistry {
	m := make(map[string]*model.Resource, len(rs))
	for _, r := range rs {
		m[r.ID] = r
	}
	return &fakeRegistry{resources: m}
}

func (f *fakeRegistry) Get(_ context.Context, id string) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resources[id]
	if !ok {
		return nil, repository.ErrResourceNotFound
	}
	cp := *r
	return &cp, nil
}

// fakeLedger mirrors the MySQL ledger's contract: Insert re-checks overlap
// atomically under its own lock, Cancel and SetStatus refuse terminal rows.
type fakeLedger struct {
	mu    sync.Mutex
	byID  map[string]*model.Reservation
	order []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{byID: map[string]*model.Reservation{}}
}

func (f *fakeLedger) Insert(_ context.Context, r *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		ex := f.byID[id]
		if ex.ResourceID == r.ResourceID && ex.Date == r.Date && ex.Status.Active() &&
			ex.Overlaps(r.StartTime, r.EndTime) {
			return &repository.OverlapError{ConflictingID: ex.ID}
		}
	}
	cp := *r
	f.byID[r.ID] = &cp
	f.order = append(f.order, r.ID)
	return nil
}

func (f *fakeLedger) Get(_ context.Context, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeLedger) Cancel(_ context.Context, id string, at time.Time, reason string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	if r.Status.Terminal() {
		return nil, repository.ErrAlreadyTerminal
	}
	r.Status = model.ReservationCancelled
	t := at
	r.CancelledAt = &t
	r.CancellationReason = reason
	cp := *r
	return &cp, nil
}

func (f *fakeLedger) SetStatus(_ context.Context, id string, status model.ReservationStatus, at time.Time) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	if r.Status.Terminal() {
		return nil, repository.ErrAlreadyTerminal
	}
	r.Status = status
	t := at
	r.UpdatedAt = &t
	cp := *r
	return &cp, nil
}

func (f *fakeLedger) ListActiveByResourceAndDate(_ context.Context, resourceID string, date model.Date) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, id := range f.order {
		r := f.byID[id]
		if r.ResourceID == resourceID && r.Date == date && r.Status.Active() {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (f *fakeLedger) ListByUser(_ context.Context, userID uint64, filter repository.ListFilter) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, id := range f.order {
		r := f.byID[id]
		if r.UserID != userID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !filter.UpcomingFrom.IsZero() && r.Date.Before(filter.UpcomingFrom) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeLedger) ListByResource(_ context.Context, resourceID string, date *model.Date) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, id := range f.order {
		r := f.byID[id]
		if r.ResourceID != resourceID {
			continue
		}
		if date != nil && r.Date != *date {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeLedger) ListAll(_ context.Context, filter repository.ListFilter) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, id := range f.order {
		r := f.byID[id]
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !filter.UpcomingFrom.IsZero() && r.Date.Before(filter.UpcomingFrom) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeLedger) MarkElapsed(_ context.Context, today model.Date, now model.TimeOfDay) (completed, noShows int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		r := f.byID[id]
		elapsed := r.Date.Before(today) || (r.Date == today && r.EndTime <= now)
		if !elapsed {
			continue
		}
		switch r.Status {
		case model.ReservationConfirmed:
			r.Status = model.ReservationCompleted
			completed++
		case model.ReservationPending:
			r.Status = model.ReservationNoShow
			noShows++
		}
	}
	return completed, noShows, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev queue.NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) byType(t string) []queue.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []queue.NotificationEvent
	for _, ev := range f.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// ---- fixtures ----

func clock(s string) model.TimeOfDay {
	t, err := model.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return t
}

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func weekdayRoom() *model.Resource {
	return &model.Resource{
		ID:   "room-1",
		Name: "Study Room 1",
		Type: model.TypeStudyRoom,
		AvailableDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		OpenTime:            clock("09:00"),
		CloseTime:           clock("17:00"),
		SlotDurationMinutes: 30,
		MaxBookingHours:     2,
		Capacity:            4,
		Status:              model.ResourceAvailable,
	}
}

func newTestService(resources ...*model.Resource) (*Service, *fakeLedger, *fakePublisher) {
	ledger := newFakeLedger()
	pub := &fakePublisher{}
	svc := NewService(newFakeRegistry(resources...), ledger, pub)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, ledger, pub
}

func bookReq(start, end string) BookRequest {
	return BookRequest{
		ResourceID: "room-1",
		UserID:     7,
		Username:   "ayla",
		Date:       date("2024-06-10"),
		StartTime:  clock(start),
		EndTime:    clock(end),
		Purpose:    "study session",
	}
}

// ---- tests ----

func TestBookConfirmsImmediately(t *testing.T) {
	svc, _, pub := newTestService(weekdayRoom())

	r, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, r.Status)
	assert.Equal(t, "Study Room 1", r.ResourceName)
	assert.Equal(t, "ayla", r.Username)
	assert.NotEmpty(t, r.ID)

	created := pub.byType(queue.EventReservationCreated)
	require.Len(t, created, 1)
	assert.Equal(t, r.ID, created[0].ReservationID)
	assert.Equal(t, "2024-06-10", created[0].Date)
}

func TestBookPendingWhenApprovalRequired(t *testing.T) {
	res := weekdayRoom()
	res.RequiresApproval = true
	svc, _, _ := newTestService(res)

	r, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, r.Status)
}

func TestBookUnknownResource(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())
	req := bookReq("10:00", "11:00")
	req.ResourceID = "nope"
	_, err := svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, repository.ErrResourceNotFound)
}

func TestBookRejectsOverlapWithConflictID(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())

	first, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), bookReq("10:30", "11:30"))
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, availability.ReasonOverlaps, rej.Reason)
	assert.Equal(t, first.ID, rej.ConflictID)
}

func TestBookAdjacentIntervalSucceeds(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())

	_, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), bookReq("11:00", "12:00"))
	assert.NoError(t, err)
}

func TestBookPendingBlocksOverlap(t *testing.T) {
	res := weekdayRoom()
	res.RequiresApproval = true
	svc, _, _ := newTestService(res)

	_, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), bookReq("10:00", "11:00"))
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, availability.ReasonOverlaps, rej.Reason)
}

func TestBookValidationRejections(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())

	cases := []struct {
		name       string
		start, end string
		date       string
		reason     availability.Reason
	}{
		{"before opening", "08:30", "09:00", "2024-06-10", availability.ReasonOutsideOperatingHours},
		{"closed weekday", "10:00", "11:00", "2024-06-09", availability.ReasonOutsideOperatingHours},
		{"too long", "10:00", "13:00", "2024-06-10", availability.ReasonExceedsMaxDuration},
		{"off grid", "10:15", "11:15", "2024-06-10", availability.ReasonNotOnSlotGrid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := bookReq(tc.start, tc.end)
			req.Date = date(tc.date)
			_, err := svc.Book(context.Background(), req)
			var rej *RejectionError
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tc.reason, rej.Reason)
		})
	}
}

func TestBookRejectsUnavailableResource(t *testing.T) {
	res := weekdayRoom()
	res.Status = model.ResourceMaintenance
	svc, _, _ := newTestService(res)

	_, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, availability.ReasonResourceUnavailable, rej.Reason)
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	svc, _, pub := newTestService(weekdayRoom())

	r, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), r.ID, r.UserID, false, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "plans changed", cancelled.CancellationReason)

	// The exact same interval must be bookable again immediately.
	_, err = svc.Book(context.Background(), bookReq("10:00", "11:00"))
	assert.NoError(t, err)

	events := pub.byType(queue.EventReservationCancelled)
	require.Len(t, events, 1)
	assert.Equal(t, "plans changed", events[0].Reason)
}

func TestCancelForbiddenForNonOwner(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())

	r, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), r.ID, 999, false, "")
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// Admins may cancel anyone's reservation.
	_, err = svc.Cancel(context.Background(), r.ID, 999, true, "maintenance")
	assert.NoError(t, err)
}

func TestCancelAlreadyCancelledIsRejected(t *testing.T) {
	svc, ledger, _ := newTestService(weekdayRoom())

	r, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	first, err := svc.Cancel(context.Background(), r.ID, r.UserID, false, "first")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), r.ID, r.UserID, false, "second")
	assert.ErrorIs(t, err, repository.ErrAlreadyTerminal)

	// The original cancellation record is untouched.
	stored, err := ledger.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.CancellationReason)
	require.NotNil(t, stored.CancelledAt)
	assert.True(t, stored.CancelledAt.Equal(*first.CancelledAt))
}

func TestCancelUnknownReservation(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())
	_, err := svc.Cancel(context.Background(), "missing", 7, false, "")
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestGetRestrictedToOwner(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())

	r, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), r.ID, 999, false)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	got, err := svc.Get(context.Background(), r.ID, 999, true)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestConcurrentIdenticalBookingsExactlyOneWins(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := bookReq("10:00", "11:00")
			req.UserID = uint64(i + 1)
			_, errs[i] = svc.Book(context.Background(), req)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var rej *RejectionError
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, availability.ReasonOverlaps, rej.Reason)
	}
	assert.Equal(t, 1, wins)
}

func TestConcurrentBookingsNeverOverlap(t *testing.T) {
	svc, ledger, _ := newTestService(weekdayRoom())
	rng := rand.New(rand.NewSource(1))

	type interval struct{ start, end model.TimeOfDay }
	var candidates []interval
	for i := 0; i < 60; i++ {
		s := clock("09:00") + model.TimeOfDay(rng.Intn(14)*30)
		e := s + model.TimeOfDay((rng.Intn(4)+1)*30)
		if e > clock("17:00") {
			e = clock("17:00")
		}
		candidates = append(candidates, interval{s, e})
	}

	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c interval) {
			defer wg.Done()
			req := bookReq("10:00", "11:00")
			req.UserID = uint64(i + 1)
			req.StartTime = c.start
			req.EndTime = c.end
			_, _ = svc.Book(context.Background(), req)
		}(i, c)
	}
	wg.Wait()

	active, err := ledger.ListActiveByResourceAndDate(context.Background(), "room-1", date("2024-06-10"))
	require.NoError(t, err)
	require.NotEmpty(t, active)
	for i := 1; i < len(active); i++ {
		assert.GreaterOrEqual(t, int(active[i].StartTime), int(active[i-1].EndTime),
			"active reservations %s and %s overlap", active[i-1].ID, active[i].ID)
	}
}

func TestBookingsOnDifferentResourcesProceedIndependently(t *testing.T) {
	other := weekdayRoom()
	other.ID = "room-2"
	other.Name = "Study Room 2"
	svc, _, _ := newTestService(weekdayRoom(), other)

	_, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	req := bookReq("10:00", "11:00")
	req.ResourceID = "room-2"
	_, err = svc.Book(context.Background(), req)
	assert.NoError(t, err)
}

func TestCheckDoesNotCommit(t *testing.T) {
	svc, ledger, _ := newTestService(weekdayRoom())

	v, err := svc.Check(context.Background(), "room-1", date("2024-06-10"), clock("10:00"), clock("11:00"))
	require.NoError(t, err)
	assert.True(t, v.Available)

	active, err := ledger.ListActiveByResourceAndDate(context.Background(), "room-1", date("2024-06-10"))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCompleteAndNoShowTransitions(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())

	r, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)

	done, err := svc.Complete(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCompleted, done.Status)

	// A completed reservation cannot transition again.
	_, err = svc.MarkNoShow(context.Background(), r.ID)
	assert.ErrorIs(t, err, repository.ErrAlreadyTerminal)
}

func TestSweepElapsed(t *testing.T) {
	svc, ledger, _ := newTestService(weekdayRoom())

	confirmed, err := svc.Book(context.Background(), bookReq("09:00", "10:00"))
	require.NoError(t, err)

	// Pretend the clock has advanced past the reservation's end.
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 10, 30, 0, 0, time.UTC) }

	completed, noShows, err := svc.SweepElapsed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)
	assert.Equal(t, int64(0), noShows)

	stored, err := ledger.Get(context.Background(), confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCompleted, stored.Status)
}

func TestListMineFiltersByStatus(t *testing.T) {
	svc, _, _ := newTestService(weekdayRoom())

	a, err := svc.Book(context.Background(), bookReq("10:00", "11:00"))
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), bookReq("11:00", "12:00"))
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), a.ID, a.UserID, false, "")
	require.NoError(t, err)

	confirmed, err := svc.ListMine(context.Background(), 7, repository.ListFilter{Status: model.ReservationConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)

	all, err := svc.ListMine(context.Background(), 7, repository.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
