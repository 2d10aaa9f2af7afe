package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the staff-facing side of the template store.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// CreateWindow validates and stores a new window. Overlap with an existing
// window is a data-quality problem, not a failure, and is only logged.
func (s *Service) CreateWindow(ctx context.Context, w *Window) error {
	if w.SlotMinutes == 0 {
		w.SlotMinutes = DefaultSlotMinutes
	}
	w.Active = true
	if err := w.Validate(); err != nil {
		return err
	}

	existing, err := s.store.ListActiveForDay(ctx, w.DoctorID, w.Weekday)
	if err != nil {
		return fmt.Errorf("load existing windows: %w", err)
	}

	if err := s.store.Create(ctx, w); err != nil {
		return fmt.Errorf("create window: %w", err)
	}

	for _, other := range existing {
		if other.Overlaps(*w) {
			s.log.Warn("overlapping availability windows",
				zap.String("doctor_id", w.DoctorID.String()),
				zap.Stringer("weekday", w.Weekday),
				zap.String("window_id", w.ID.String()),
				zap.String("overlaps_window_id", other.ID.String()),
			)
		}
	}
	return nil
}

func (s *Service) DeactivateWindow(ctx context.Context, id uuid.UUID) (*Window, error) {
	w, err := s.store.Deactivate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deactivate window: %w", err)
	}
	s.log.Info("availability window deactivated",
		zap.String("window_id", id.String()),
		zap.String("doctor_id", w.DoctorID.String()))
	return w, nil
}

// WeeklySchedule returns the doctor's active template grouped by weekday.
func (s *Service) WeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]DayPlan, error) {
	windows, err := s.store.ListActive(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return WeeklyPlan(windows), nil
}
