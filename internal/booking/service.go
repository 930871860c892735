// Package booking implements the reservation core: the orchestrator that
// validates and commits bookings, and the cancellation handler that frees
// slots.  All conflict decisions are delegated to the availability engine;
// all state lives behind the store interfaces so the MySQL repositories and
// the test fakes satisfy the same contract.
package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ayvaro/resource-reservation/internal/availability"
	"github.com/ayvaro/resource-reservation/internal/model"
	"github.com/ayvaro/resource-reservation/internal/queue"
	"github.com/ayvaro/resource-reservation/internal/repository"
)

// ResourceStore is the registry read contract the orchestrator needs.
// Implementations return repository.ErrResourceNotFound for unknown ids.
type ResourceStore interface {
	Get(ctx context.Context, id string) (*model.Resource, error)
}

// ReservationStore is the ledger contract.  Insert must re-run the overlap
// check atomically with the write and return *repository.OverlapError when
// another active reservation occupies the interval; Cancel and SetStatus
// must be conditional on the record still being active and return
// repository.ErrAlreadyTerminal otherwise.
type ReservationStore interface {
	Insert(ctx context.Context, r *model.Reservation) error
	Get(ctx context.Context, id string) (*model.Reservation, error)
	Cancel(ctx context.Context, id string, at time.Time, reason string) (*model.Reservation, error)
	SetStatus(ctx context.Context, id string, status model.ReservationStatus, at time.Time) (*model.Reservation, error)
	ListActiveByResourceAndDate(ctx context.Context, resourceID string, date model.Date) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64, f repository.ListFilter) ([]model.Reservation, error)
	ListByResource(ctx context.Context, resourceID string, date *model.Date) ([]model.Reservation, error)
	ListAll(ctx context.Context, f repository.ListFilter) ([]model.Reservation, error)
	MarkElapsed(ctx context.Context, today model.Date, now model.TimeOfDay) (completed, noShows int64, err error)
}

// EventPublisher delivers notification events.  Publishing is best effort:
// the service logs failures and never fails a booking over them.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// Service wires the registry, the ledger and the notification queue into
// the four client-facing operations plus the administrative transitions.
type Service struct {
	resources ResourceStore
	ledger    ReservationStore
	events    EventPublisher // may be nil when the broker is disabled
	locks     *lockTable
	now       func() time.Time
}

// NewService constructs the booking service.  events may be nil.
func NewService(resources ResourceStore, ledger ReservationStore, events EventPublisher) *Service {
	if resources == nil || ledger == nil {
		panic("nil store passed to booking.NewService")
	}
	return &Service{
		resources: resources,
		ledger:    ledger,
		events:    events,
		locks:     newLockTable(),
		now:       time.Now,
	}
}

// BookRequest carries everything needed to create a reservation.  Identity
// is always explicit here; the service never reads it from ambient state.
type BookRequest struct {
	ResourceID string
	UserID     uint64
	Username   string
	Date       model.Date
	StartTime  model.TimeOfDay
	EndTime    model.TimeOfDay
	Purpose    string
	Notes      string
}

// Book validates the request end to end and commits it to the ledger.
// The availability check and the insert run under the resource's lock, so
// two concurrent bookings for overlapping slots on the same resource cannot
// both succeed; the ledger re-checks overlap inside its own transaction as
// a second line of defence and any commit-time conflict is surfaced as an
// overlap rejection.  The service never retries; resubmission is the
// caller's decision.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Reservation, error) {
	res, err := s.resources.Get(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}

	release := s.locks.acquire(res.ID)
	defer release()

	active, err := s.ledger.ListActiveByResourceAndDate(ctx, res.ID, req.Date)
	if err != nil {
		return nil, err
	}
	if v := availability.Check(res, req.Date, req.StartTime, req.EndTime, active); !v.Available {
		return nil, reject(v)
	}

	status := model.ReservationConfirmed
	if res.RequiresApproval {
		status = model.ReservationPending
	}
	r := &model.Reservation{
		ID:           uuid.NewString(),
		ResourceID:   res.ID,
		ResourceName: res.Name,
		UserID:       req.UserID,
		Username:     req.Username,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Purpose:      req.Purpose,
		Notes:        req.Notes,
		Status:       status,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.ledger.Insert(ctx, r); err != nil {
		var ov *repository.OverlapError
		if errors.As(err, &ov) {
			return nil, &RejectionError{Reason: availability.ReasonOverlaps, ConflictID: ov.ConflictingID}
		}
		return nil, err
	}

	s.publish(ctx, queue.EventReservationCreated, r, "")
	return r, nil
}

// Check runs the availability engine for a candidate interval without
// committing anything.  The verdict is advisory: Book re-evaluates under
// the resource lock, so a positive pre-flight answer can still lose the
// race.
func (s *Service) Check(ctx context.Context, resourceID string, date model.Date, start, end model.TimeOfDay) (availability.Verdict, error) {
	res, err := s.resources.Get(ctx, resourceID)
	if err != nil {
		return availability.Verdict{}, err
	}
	active, err := s.ledger.ListActiveByResourceAndDate(ctx, resourceID, date)
	if err != nil {
		return availability.Verdict{}, err
	}
	return availability.Check(res, date, start, end, active), nil
}

// DayView returns the resource's slot grid for one date with availability
// flags, for rendering a booking calendar.
func (s *Service) DayView(ctx context.Context, resourceID string, date model.Date) (*model.Resource, []availability.Slot, error) {
	res, err := s.resources.Get(ctx, resourceID)
	if err != nil {
		return nil, nil, err
	}
	active, err := s.ledger.ListActiveByResourceAndDate(ctx, resourceID, date)
	if err != nil {
		return nil, nil, err
	}
	return res, availability.DaySlots(res, date, active), nil
}

// Cancel transitions a reservation to cancelled and frees its slot.  Only
// the original requester or an admin may cancel.  A reservation that is
// already cancelled or otherwise finished fails with ErrAlreadyTerminal and
// its cancellation record is left untouched.
func (s *Service) Cancel(ctx context.Context, reservationID string, requesterID uint64, admin bool, reason string) (*model.Reservation, error) {
	r, err := s.ledger.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.UserID != requesterID && !admin {
		return nil, repository.ErrForbidden
	}

	// Serialize with bookings and other cancels on the same resource so
	// the freed slot becomes visible atomically.
	release := s.locks.acquire(r.ResourceID)
	defer release()

	cancelled, err := s.ledger.Cancel(ctx, reservationID, s.now().UTC(), reason)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, queue.EventReservationCancelled, cancelled, reason)
	return cancelled, nil
}

// Get returns a reservation, restricted to its owner unless admin.
func (s *Service) Get(ctx context.Context, reservationID string, requesterID uint64, admin bool) (*model.Reservation, error) {
	r, err := s.ledger.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.UserID != requesterID && !admin {
		return nil, repository.ErrForbidden
	}
	return r, nil
}

// ListMine returns the requester's reservations.
func (s *Service) ListMine(ctx context.Context, userID uint64, f repository.ListFilter) ([]model.Reservation, error) {
	return s.ledger.ListByUser(ctx, userID, f)
}

// ListForResource returns a resource's reservations, optionally narrowed
// to one date.
func (s *Service) ListForResource(ctx context.Context, resourceID string, date *model.Date) ([]model.Reservation, error) {
	if _, err := s.resources.Get(ctx, resourceID); err != nil {
		return nil, err
	}
	return s.ledger.ListByResource(ctx, resourceID, date)
}

// ListAll returns every reservation matching the filter.  Handlers gate
// this behind the admin role.
func (s *Service) ListAll(ctx context.Context, f repository.ListFilter) ([]model.Reservation, error) {
	return s.ledger.ListAll(ctx, f)
}

// Complete marks a reservation completed.  Admin operation; fails with
// ErrAlreadyTerminal when the reservation is not active any more.
func (s *Service) Complete(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return s.ledger.SetStatus(ctx, reservationID, model.ReservationCompleted, s.now().UTC())
}

// MarkNoShow marks a reservation no_show.  Admin operation with the same
// semantics as Complete.
func (s *Service) MarkNoShow(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return s.ledger.SetStatus(ctx, reservationID, model.ReservationNoShow, s.now().UTC())
}

// SweepElapsed finalises reservations whose end instant has passed:
// confirmed ones become completed, pending ones that were never approved
// become no_show.  Called periodically by the cron job.
func (s *Service) SweepElapsed(ctx context.Context) (completed, noShows int64, err error) {
	now := s.now()
	today := model.DateOf(now)
	tod := model.TimeOfDay(now.Hour()*60 + now.Minute())
	return s.ledger.MarkElapsed(ctx, today, tod)
}

func (s *Service) publish(ctx context.Context, eventType string, r *model.Reservation, reason string) {
	if s.events == nil {
		return
	}
	ev := queue.NotificationEvent{
		Type:          eventType,
		UserID:        r.UserID,
		Username:      r.Username,
		ReservationID: r.ID,
		ResourceName:  r.ResourceName,
		Date:          r.Date.String(),
		StartTime:     r.StartTime.String(),
		EndTime:       r.EndTime.String(),
		Reason:        reason,
		OccurredAt:    s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("booking: publish %s for reservation %s failed: %v", eventType, r.ID, err)
	}
}
