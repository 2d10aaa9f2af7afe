package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/metrics"
	"github.com/hackgods/clinic-appointment-scheduling/internal/schedule"
)

// Resolver answers "which slots can still be booked". It takes no locks; a
// slot it reports free may be taken by the time a booking arrives.
type Resolver struct {
	repo      Repository
	directory directory.Repository
	generator *schedule.Generator
	metrics   *metrics.Collector
	log       *zap.Logger
}

func NewResolver(repo Repository, dir directory.Repository, gen *schedule.Generator, m *metrics.Collector, log *zap.Logger) *Resolver {
	return &Resolver{
		repo:      repo,
		directory: dir,
		generator: gen,
		metrics:   m,
		log:       log,
	}
}

// ListAvailableSlots returns generated slots for doctorID on date minus the
// ones held by scheduled bookings. Past dates are resolved like any other.
// A day without windows yields an empty, non-nil slice.
func (r *Resolver) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error) {
	if _, err := r.directory.GetDoctor(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	windows, err := r.generator.Windows(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	for _, o := range schedule.FindOverlaps(windows) {
		r.log.Warn("overlapping availability windows",
			zap.String("doctor_id", doctorID.String()),
			zap.Stringer("date", date),
			zap.String("window_id", o.First.ID.String()),
			zap.String("overlaps_window_id", o.Second.ID.String()),
		)
	}

	booked, err := r.repo.ListScheduled(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list scheduled bookings: %w", err)
	}
	taken := make(map[calendar.TimeOfDay]struct{}, len(booked))
	for _, b := range booked {
		taken[b.Time] = struct{}{}
	}

	free := make([]calendar.TimeOfDay, 0)
	for t := range schedule.SlotsFor(windows, date) {
		if _, ok := taken[t]; !ok {
			free = append(free, t)
		}
	}

	r.metrics.AvailabilityQueries.Inc()
	return free, nil
}
