package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const windowColumns = `id, doctor_id, day_of_week, start_time, end_time, slot_duration, is_active, created_at`

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var day string

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&day,
		&w.Start,
		&w.End,
		&w.SlotMinutes,
		&w.Active,
		&w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	wd, err := calendar.ParseWeekday(day)
	if err != nil {
		return nil, fmt.Errorf("window %s: %w", w.ID, err)
	}
	w.Weekday = wd
	return &w, nil
}

func (s *PgStore) list(ctx context.Context, query string, args ...any) ([]Window, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgStore) ListActiveForDay(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]Window, error) {
	return s.list(ctx, `
		SELECT `+windowColumns+`
		FROM schedules
		WHERE doctor_id = $1
		  AND day_of_week = $2
		  AND is_active
		ORDER BY created_at, id
	`, doctorID, day.String())
}

func (s *PgStore) ListActive(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	return s.list(ctx, `
		SELECT `+windowColumns+`
		FROM schedules
		WHERE doctor_id = $1
		  AND is_active
		ORDER BY created_at, id
	`, doctorID)
}

func (s *PgStore) Create(ctx context.Context, w *Window) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO schedules (id, doctor_id, day_of_week, start_time, end_time, slot_duration, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, true, now())
		RETURNING `+windowColumns,
		w.ID, w.DoctorID, w.Weekday.String(), w.Start, w.End, w.SlotMinutes)

	created, err := scanWindow(row)
	if err != nil {
		return fmt.Errorf("insert window: %w", err)
	}
	*w = *created
	return nil
}

func (s *PgStore) Deactivate(ctx context.Context, id uuid.UUID) (*Window, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE schedules
		SET is_active = false
		WHERE id = $1
		RETURNING `+windowColumns, id)
	return scanWindow(row)
}
