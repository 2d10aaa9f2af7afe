package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
	"github.com/hackgods/clinic-appointment-scheduling/internal/config"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-appointment-scheduling/internal/redis"
	"github.com/hackgods/clinic-appointment-scheduling/internal/schedule"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"

	pastHistoryLimit = 10
)

var (
	ErrPastDate          = errors.New("cannot book an appointment in the past")
	ErrSlotNotOffered    = errors.New("requested time is not a bookable slot for this doctor")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrNotOwner          = errors.New("appointment belongs to another patient")
	ErrInvalidScope      = errors.New("scope must be upcoming or past")
)

// Service is the booking transaction manager: it admits or rejects booking
// requests and drives appointments through their lifecycle.
type Service struct {
	repo      Repository
	directory directory.Repository
	generator *schedule.Generator
	locker    redisclient.Locker
	metrics   *metrics.Collector
	log       *zap.Logger

	loc     *time.Location
	retries int
	now     func() time.Time
	newRef  func(calendar.Date) (string, error)
}

func NewService(
	repo Repository,
	dir directory.Repository,
	gen *schedule.Generator,
	locker redisclient.Locker,
	m *metrics.Collector,
	cfg config.Config,
	log *zap.Logger,
) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	retries := cfg.ReferenceRetries
	if retries < 1 {
		retries = 1
	}
	return &Service{
		repo:      repo,
		directory: dir,
		generator: gen,
		locker:    locker,
		metrics:   m,
		log:       log,
		loc:       loc,
		retries:   retries,
		now:       time.Now,
		newRef:    NewReference,
	}
}

// Today is the current calendar date in the clinic's time zone.
func (s *Service) Today() calendar.Date {
	return calendar.DateOf(s.now().In(s.loc))
}

// CreateBooking validates req and, if the slot is free, records a scheduled
// booking. Checks run in order and the first failure wins: past date, then
// unknown doctor or patient, then a time off the doctor's slot grid, then an
// occupied slot.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	b, err := s.createBooking(ctx, req)
	s.metrics.BookingsTotal.WithLabelValues(bookingOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	s.log.Info("appointment booked",
		zap.String("appointment_id", b.ID.String()),
		zap.String("reference", b.ReferenceNumber),
		zap.String("doctor_id", b.DoctorID.String()),
		zap.Stringer("date", b.Date),
		zap.Stringer("time", b.Time),
	)
	return b, nil
}

func (s *Service) createBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	today := s.Today()
	if req.Date.Before(today) {
		return nil, ErrPastDate
	}

	if _, err := s.directory.GetDoctor(ctx, req.DoctorID); err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if _, err := s.directory.GetPatient(ctx, req.PatientID); err != nil {
		if errors.Is(err, directory.ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	offered, err := s.generator.Offers(ctx, req.DoctorID, req.Date, req.Time)
	if err != nil {
		return nil, fmt.Errorf("check slot grid: %w", err)
	}
	if !offered {
		return nil, ErrSlotNotOffered
	}

	var created *Booking

	err = s.locker.WithSlotLock(ctx, req.Key().String(), func(lockCtx context.Context) error {
		// Fast rejection; the unique index on insert is authoritative.
		existing, err := s.repo.GetScheduledAt(lockCtx, req.Key())
		if err != nil && !errors.Is(err, ErrBookingNotFound) {
			return fmt.Errorf("check scheduled appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotConflict
		}

		b, err := s.insertWithReference(lockCtx, req, today)
		if err != nil {
			return err
		}
		created = b

		s.logEvent(lockCtx, b.ID, EventAppointmentCreated, map[string]any{
			"reference":  b.ReferenceNumber,
			"patient_id": b.PatientID.String(),
			"doctor_id":  b.DoctorID.String(),
			"date":       b.Date.String(),
			"time":       b.Time.String(),
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: another booking for this slot is in progress", ErrSlotConflict)
		}
		return nil, err
	}

	return created, nil
}

// insertWithReference retries only on reference collisions, with a fresh
// code each time, and gives up after the configured number of attempts.
func (s *Service) insertWithReference(ctx context.Context, req CreateBookingRequest, issued calendar.Date) (*Booking, error) {
	for attempt := 1; attempt <= s.retries; attempt++ {
		ref, err := s.newRef(issued)
		if err != nil {
			return nil, fmt.Errorf("generate reference: %w", err)
		}

		b := &Booking{
			ReferenceNumber: ref,
			PatientID:       req.PatientID,
			DoctorID:        req.DoctorID,
			Date:            req.Date,
			Time:            req.Time,
			Status:          StatusScheduled,
			Notes:           req.Notes,
		}

		err = s.repo.Insert(ctx, b)
		switch {
		case err == nil:
			return b, nil
		case errors.Is(err, ErrReferenceCollision):
			s.log.Warn("booking reference collision, retrying",
				zap.String("reference", ref),
				zap.Int("attempt", attempt))
			continue
		case errors.Is(err, ErrSlotConflict):
			return nil, err
		default:
			return nil, fmt.Errorf("insert appointment: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrReferenceCollision, s.retries)
}

// CancelBooking cancels a scheduled booking on behalf of its patient. The
// slot becomes available again on the next availability query.
func (s *Service) CancelBooking(ctx context.Context, id, patientID uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if b.PatientID != patientID {
		return nil, ErrNotOwner
	}

	return s.transition(ctx, b, StatusCancelled, EventAppointmentCancelled)
}

// CompleteBooking marks a scheduled booking as attended.
func (s *Service) CompleteBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	return s.transition(ctx, b, StatusCompleted, EventAppointmentCompleted)
}

func (s *Service) transition(ctx context.Context, b *Booking, to Status, event string) (*Booking, error) {
	if !b.Status.CanTransitionTo(to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, to)
	if err != nil {
		// The row exists, so a miss means someone else moved it first.
		if errors.Is(err, ErrBookingNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(to)).Inc()
	s.logEvent(ctx, updated.ID, event, map[string]any{
		"from": string(b.Status),
		"to":   string(to),
	})
	s.log.Info("appointment status changed",
		zap.String("appointment_id", updated.ID.String()),
		zap.String("status", string(to)))

	return updated, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}

// GetBooking retrieves a single appointment by ID.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return b, nil
}

// ListForDoctor returns every booking for a doctor on a date, any status.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]Booking, error) {
	bookings, err := s.repo.ListByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return bookings, nil
}

// ListForPatient returns a patient's upcoming scheduled bookings, or their
// history: anything dated before today plus every completed or cancelled
// booking, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, scope Scope) ([]Booking, error) {
	var (
		bookings []Booking
		err      error
	)
	switch scope {
	case ScopeUpcoming, "":
		bookings, err = s.repo.ListUpcomingByPatient(ctx, patientID, s.Today())
	case ScopePast:
		bookings, err = s.repo.ListPastByPatient(ctx, patientID, s.Today(), pastHistoryLimit)
	default:
		return nil, ErrInvalidScope
	}
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return bookings, nil
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, ErrPastDate):
		return metrics.OutcomePastDate
	case errors.Is(err, ErrSlotNotOffered):
		return metrics.OutcomeNotOffered
	case errors.Is(err, ErrSlotConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, ErrReferenceCollision):
		return metrics.OutcomeReferenceCollision
	default:
		return metrics.OutcomeError
	}
}
