package model

import "time"

// ResourceStatus is the closed set of states a resource can be in.  Only
// an available resource accepts new reservations; the other two states are
// set by administrators and block booking without deleting history.
type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "available"
	ResourceMaintenance ResourceStatus = "maintenance"
	ResourceUnavailable ResourceStatus = "unavailable"
)

// ValidResourceStatus reports whether s is a member of the status set.
func ValidResourceStatus(s ResourceStatus) bool {
	switch s {
	case ResourceAvailable, ResourceMaintenance, ResourceUnavailable:
		return true
	}
	return false
}

// ResourceType categorises bookable resources.  The set mirrors the kinds
// of shared spaces the service manages.
type ResourceType string

const (
	TypeLibraryDesk ResourceType = "library_desk"
	TypeStudyRoom   ResourceType = "study_room"
	TypeMeetingRoom ResourceType = "meeting_room"
	TypeOffice      ResourceType = "office"
	TypeComputerLab ResourceType = "computer_lab"
)

// ValidResourceType reports whether t is a member of the type set.
func ValidResourceType(t ResourceType) bool {
	switch t {
	case TypeLibraryDesk, TypeStudyRoom, TypeMeetingRoom, TypeOffice, TypeComputerLab:
		return true
	}
	return false
}

// Resource describes a bookable space and the scheduling constraints the
// availability engine enforces against it.
//
// Fields:
//  ID                  – opaque UUID identifier.
//  Name                – display name, unique enough for notifications.
//  Type                – resource category (desk, room, lab, ...).
//  Description         – optional free text.
//  Location / Building – physical placement; Building may be empty.
//  Floor               – floor number; zero when not applicable.
//  Capacity            – positive occupant count.
//  Amenities           – optional equipment tags.
//  AvailableDays       – weekdays on which booking is allowed (Sunday == 0).
//  OpenTime/CloseTime  – daily operating window; OpenTime < CloseTime.
//  SlotDurationMinutes – granularity of the booking grid, positive.
//  MaxBookingHours     – longest single reservation, in hours.
//  RequiresApproval    – when true new reservations start as pending.
//  Status              – available | maintenance | unavailable.
//  CreatedAt/UpdatedAt – timestamps; UpdatedAt is nil until first update.
type Resource struct {
	ID                  string
	Name                string
	Type                ResourceType
	Description         string
	Location            string
	Building            string
	Floor               int
	Capacity            int
	Amenities           []string
	AvailableDays       []time.Weekday
	OpenTime            TimeOfDay
	CloseTime           TimeOfDay
	SlotDurationMinutes int
	MaxBookingHours     int
	RequiresApproval    bool
	Status              ResourceStatus
	CreatedAt           time.Time
	UpdatedAt           *time.Time
}

// OpenOn reports whether the resource accepts bookings on the given weekday.
func (r *Resource) OpenOn(day time.Weekday) bool {
	for _, d := range r.AvailableDays {
		if d == day {
			return true
		}
	}
	return false
}
