package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
)

// Status transitions:
//
//	scheduled → completed
//	scheduled → cancelled
//
// completed and cancelled are terminal.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusScheduled && next.Terminal()
}

type Booking struct {
	ID              uuid.UUID
	ReferenceNumber string
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	Date            calendar.Date
	Time            calendar.TimeOfDay
	Status          Status
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Key returns the slot this booking occupies.
func (b *Booking) Key() SlotKey {
	return SlotKey{DoctorID: b.DoctorID, Date: b.Date, Time: b.Time}
}

// SlotKey identifies one bookable slot. At most one scheduled booking may
// hold a given key.
type SlotKey struct {
	DoctorID uuid.UUID
	Date     calendar.Date
	Time     calendar.TimeOfDay
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.DoctorID, k.Date, k.Time)
}

// CreateBookingRequest is the input to Service.CreateBooking.
type CreateBookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      calendar.Date
	Time      calendar.TimeOfDay
	Notes     string
}

func (r CreateBookingRequest) Key() SlotKey {
	return SlotKey{DoctorID: r.DoctorID, Date: r.Date, Time: r.Time}
}

// Scope selects which part of a patient's history to list.
type Scope string

const (
	ScopeUpcoming Scope = "upcoming"
	ScopePast     Scope = "past"
)

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
