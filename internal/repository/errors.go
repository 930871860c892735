// Package repository defines the persistence layer and the sentinel error
// values reused across repositories.  The sentinels let higher layers such
// as the booking service and handlers distinguish failure scenarios without
// string matching: ErrResourceNotFound maps to HTTP 404, ErrForbidden to
// 403, ErrConflict and ErrAlreadyTerminal to 409, and so on.
package repository

import (
	"errors"
	"fmt"
)

// ErrResourceNotFound is returned when a resource id is unknown.
var ErrResourceNotFound = errors.New("resource not found")

// ErrReservationNotFound is returned when a reservation id is unknown.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrForbidden is returned when the caller attempts an operation on a
// reservation they do not own and they are not an admin.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyTerminal is returned by cancel and status transitions when the
// reservation has already reached a terminal state (cancelled, completed
// or no_show).  The existing record is never modified in that case.
var ErrAlreadyTerminal = errors.New("reservation already terminal")

// ErrConflict signals that an insert lost the race against another active
// reservation on the same interval.  Callers usually receive the richer
// *OverlapError, which matches this sentinel via errors.Is.
var ErrConflict = errors.New("conflict")

// ErrUserExists is returned when registration collides with an existing
// email or username.
var ErrUserExists = errors.New("user already exists")

// OverlapError is the commit-time conflict raised by the reservation
// ledger: the transaction found an active reservation overlapping the
// candidate interval.  ConflictingID names that reservation.
type OverlapError struct {
	ConflictingID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("conflict: interval overlaps active reservation %s", e.ConflictingID)
}

// Is makes errors.Is(err, ErrConflict) succeed for OverlapError values.
func (e *OverlapError) Is(target error) bool { return target == ErrConflict }
