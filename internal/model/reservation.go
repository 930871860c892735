package model

import "time"

// ReservationStatus is the closed set of reservation lifecycle states.
//
// pending and confirmed reservations are "active": they occupy their slot
// and participate in overlap checks.  cancelled, completed and no_show are
// terminal; they stay in history but never block another booking.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
	ReservationNoShow    ReservationStatus = "no_show"
)

// ValidReservationStatus reports whether s is a member of the status set.
func ValidReservationStatus(s ReservationStatus) bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCancelled,
		ReservationCompleted, ReservationNoShow:
		return true
	}
	return false
}

// Active reports whether the status counts toward slot conflicts.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// Terminal reports whether the status ends the reservation's lifecycle.
// A terminal reservation cannot be cancelled again.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationCancelled, ReservationCompleted, ReservationNoShow:
		return true
	}
	return false
}

// Reservation is a time-bounded claim on a resource, held in the ledger.
// The interval [StartTime, EndTime) is half-open so back-to-back bookings
// never collide.  ResourceName and Username are denormalised copies taken
// at booking time so notification events need no extra lookups.
//
// Fields:
//  ID                  – opaque UUID identifier.
//  ResourceID          – resource the slot belongs to.
//  ResourceName        – resource display name at booking time.
//  UserID / Username   – requester identity.
//  Date                – calendar date, resource-local.
//  StartTime/EndTime   – half-open interval on the resource's slot grid.
//  Purpose / Notes     – optional free text from the requester.
//  Status              – lifecycle state, see ReservationStatus.
//  CreatedAt/UpdatedAt – timestamps; UpdatedAt nil until first change.
//  CancelledAt         – set iff Status == cancelled.
//  CancellationReason  – optional, set only on cancellation.
type Reservation struct {
	ID                 string
	ResourceID         string
	ResourceName       string
	UserID             uint64
	Username           string
	Date               Date
	StartTime          TimeOfDay
	EndTime            TimeOfDay
	Purpose            string
	Notes              string
	Status             ReservationStatus
	CreatedAt          time.Time
	UpdatedAt          *time.Time
	CancelledAt        *time.Time
	CancellationReason string
}

// Overlaps reports whether the reservation's interval intersects
// [start, end).  Both intervals are half-open, so touching endpoints do
// not overlap.
func (r *Reservation) Overlaps(start, end TimeOfDay) bool {
	return r.StartTime < end && start < r.EndTime
}
