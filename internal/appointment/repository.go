package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
)

var (
	ErrBookingNotFound = errors.New("appointment not found")

	// ErrSlotConflict is returned when a scheduled booking already holds the
	// slot, whether found by the pre-check or by the storage constraint.
	ErrSlotConflict = errors.New("time slot is already booked")

	// ErrReferenceCollision means the generated reference code is taken.
	// Callers may retry with a fresh code.
	ErrReferenceCollision = errors.New("booking reference already exists")
)

// Repository is the booking ledger. Insert must reject a second scheduled
// booking for the same slot atomically with respect to concurrent inserts.
type Repository interface {
	ListScheduled(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]Booking, error)
	GetScheduledAt(ctx context.Context, key SlotKey) (*Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// Insert stores b in scheduled status. It returns ErrSlotConflict or
	// ErrReferenceCollision on the matching uniqueness violation.
	Insert(ctx context.Context, b *Booking) error

	// UpdateStatus moves id from one status to another. It returns
	// ErrBookingNotFound when no booking with that id is in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error)

	ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]Booking, error)
	ListUpcomingByPatient(ctx context.Context, patientID uuid.UUID, from calendar.Date) ([]Booking, error)
	ListPastByPatient(ctx context.Context, patientID uuid.UUID, before calendar.Date, limit int) ([]Booking, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
