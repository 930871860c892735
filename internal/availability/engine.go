// Package availability decides whether a candidate interval is bookable on
// a resource.  The engine is a pure function over the resource's
// constraints and the ledger's active reservations for the day; callers
// supply both, so the same verdict logic runs at pre-flight check time and
// again inside the commit path.
package availability

import (
	"github.com/ayvaro/resource-reservation/internal/model"
)

// Reason identifies why a candidate interval was rejected.
type Reason string

const (
	// ReasonResourceUnavailable: the resource's status blocks booking.
	ReasonResourceUnavailable Reason = "resource_unavailable"
	// ReasonOutsideOperatingHours: the day is closed, or the interval is
	// not fully inside the daily operating window.
	ReasonOutsideOperatingHours Reason = "outside_operating_hours"
	// ReasonNotOnSlotGrid: start or end is not aligned to the slot grid
	// anchored at the operating start.
	ReasonNotOnSlotGrid Reason = "not_on_slot_grid"
	// ReasonExceedsMaxDuration: the interval is empty, inverted, or longer
	// than the resource's maximum booking duration.
	ReasonExceedsMaxDuration Reason = "exceeds_max_duration"
	// ReasonOverlaps: an active reservation already occupies part of the
	// interval; Verdict.ConflictID names it.
	ReasonOverlaps Reason = "overlaps"
)

// Verdict is the engine's answer for one candidate interval.  When
// Available is false, Reason says why, and ConflictID carries the
// offending reservation's id for ReasonOverlaps.
type Verdict struct {
	Available  bool
	Reason     Reason
	ConflictID string
}

func ok() Verdict                 { return Verdict{Available: true} }
func rejected(r Reason) Verdict   { return Verdict{Reason: r} }
func conflict(id string) Verdict  { return Verdict{Reason: ReasonOverlaps, ConflictID: id} }

// Check evaluates a candidate [start, end) interval on res for the given
// date.  The active slice must contain the ledger's active (pending or
// confirmed) reservations for (resource, date), ordered by start time; the
// first overlap in that order is reported.  Checks run in a fixed order so
// the most fundamental rejection wins: resource status, weekday, operating
// window, grid alignment, duration, conflicts.
func Check(res *model.Resource, date model.Date, start, end model.TimeOfDay, active []model.Reservation) Verdict {
	if res.Status != model.ResourceAvailable {
		return rejected(ReasonResourceUnavailable)
	}
	if !res.OpenOn(date.Weekday()) {
		return rejected(ReasonOutsideOperatingHours)
	}
	if start < res.OpenTime || end > res.CloseTime {
		return rejected(ReasonOutsideOperatingHours)
	}
	slot := model.TimeOfDay(res.SlotDurationMinutes)
	if slot <= 0 || (start-res.OpenTime)%slot != 0 || (end-res.OpenTime)%slot != 0 {
		return rejected(ReasonNotOnSlotGrid)
	}
	dur := end - start
	if dur <= 0 || int(dur) > res.MaxBookingHours*60 {
		return rejected(ReasonExceedsMaxDuration)
	}
	for i := range active {
		if active[i].Overlaps(start, end) {
			return conflict(active[i].ID)
		}
	}
	return ok()
}

// Slot is one cell of a resource's daily booking grid.
type Slot struct {
	Start     model.TimeOfDay `json:"start_time"`
	End       model.TimeOfDay `json:"end_time"`
	Available bool            `json:"is_available"`
}

// DaySlots renders the full slot grid for res on date, marking each slot
// unavailable when the resource cannot be booked that day at all or when
// an active reservation overlaps it.  The grid runs from the operating
// start in SlotDurationMinutes steps; a trailing partial slot is omitted.
func DaySlots(res *model.Resource, date model.Date, active []model.Reservation) []Slot {
	step := model.TimeOfDay(res.SlotDurationMinutes)
	if step <= 0 || res.CloseTime <= res.OpenTime {
		return nil
	}
	bookable := res.Status == model.ResourceAvailable && res.OpenOn(date.Weekday())

	var slots []Slot
	for s := res.OpenTime; s+step <= res.CloseTime; s += step {
		e := s + step
		free := bookable
		if free {
			for i := range active {
				if active[i].Overlaps(s, e) {
					free = false
					break
				}
			}
		}
		slots = append(slots, Slot{Start: s, End: e, Available: free})
	}
	return slots
}
