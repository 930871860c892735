package booking

import (
	"fmt"

	"github.com/ayvaro/resource-reservation/internal/availability"
)

// RejectionError is returned when a booking request fails one of the
// availability engine's checks.  It carries the machine-readable reason and,
// for overlap rejections, the conflicting reservation's id so callers can
// tell the user exactly which booking is in the way.
//
// Lookup failures, authorization failures and redundant cancels are not
// rejections; those surface as the repository sentinels.
type RejectionError struct {
	Reason     availability.Reason
	ConflictID string
}

func (e *RejectionError) Error() string {
	if e.Reason == availability.ReasonOverlaps && e.ConflictID != "" {
		return fmt.Sprintf("booking rejected: %s (conflicts with reservation %s)", e.Reason, e.ConflictID)
	}
	return fmt.Sprintf("booking rejected: %s", e.Reason)
}

func reject(v availability.Verdict) error {
	return &RejectionError{Reason: v.Reason, ConflictID: v.ConflictID}
}
