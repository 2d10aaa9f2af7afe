package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
)

const (
	pgUniqueViolation = "23505"

	// Index and constraint names from the schema migration.
	constraintScheduledSlot = "appointments_scheduled_slot_key"
	constraintReference     = "appointments_reference_number_key"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const bookingColumns = `id, reference_number, patient_id, doctor_id, appointment_date, appointment_time, status, notes, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var notes *string

	err := row.Scan(
		&b.ID,
		&b.ReferenceNumber,
		&b.PatientID,
		&b.DoctorID,
		&b.Date,
		&b.Time,
		&b.Status,
		&notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if notes != nil {
		b.Notes = *notes
	}
	return &b, nil
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// translateInsertError maps unique violations onto the ledger's errors.
func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintScheduledSlot:
		return ErrSlotConflict
	case constraintReference:
		return ErrReferenceCollision
	}
	return err
}

// Interface methods

func (r *PgRepository) ListScheduled(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND status = 'scheduled'
		ORDER BY appointment_time
	`, doctorID, date)
}

func (r *PgRepository) GetScheduledAt(ctx context.Context, key SlotKey) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND appointment_time = $3
		  AND status = 'scheduled'
	`, key.DoctorID, key.Date, key.Time)
	return scanBooking(row)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) Insert(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, reference_number, patient_id, doctor_id, appointment_date, appointment_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', NULLIF($7, ''), now(), now())
		RETURNING `+bookingColumns,
		b.ID, b.ReferenceNumber, b.PatientID, b.DoctorID, b.Date, b.Time, b.Notes)

	created, err := scanBooking(row)
	if err != nil {
		return translateInsertError(err)
	}
	*b = *created
	return nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns, id, to, from)

	return scanBooking(row)
}

func (r *PgRepository) ListByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		ORDER BY appointment_time, created_at
	`, doctorID, date)
}

func (r *PgRepository) ListUpcomingByPatient(ctx context.Context, patientID uuid.UUID, from calendar.Date) ([]Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND appointment_date >= $2
		  AND status = 'scheduled'
		ORDER BY appointment_date, appointment_time
	`, patientID, from)
}

func (r *PgRepository) ListPastByPatient(ctx context.Context, patientID uuid.UUID, before calendar.Date, limit int) ([]Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND (appointment_date < $2 OR status IN ('completed', 'cancelled'))
		ORDER BY appointment_date DESC, appointment_time DESC
		LIMIT $3
	`, patientID, before, limit)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
