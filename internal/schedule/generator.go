package schedule

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
)

// Generator expands a doctor's weekly template into candidate slot times.
type Generator struct {
	store Store
}

func NewGenerator(store Store) *Generator {
	return &Generator{store: store}
}

// Windows loads the active windows that apply to date, in emission order.
func (g *Generator) Windows(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]Window, error) {
	windows, err := g.store.ListActiveForDay(ctx, doctorID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	return ordered(windows), nil
}

// Slots returns the candidate start times for doctorID on date. The returned
// sequence is lazy and may be ranged over any number of times.
func (g *Generator) Slots(ctx context.Context, doctorID uuid.UUID, date calendar.Date) (iter.Seq[calendar.TimeOfDay], error) {
	windows, err := g.Windows(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return SlotsFor(windows, date), nil
}

// Offers reports whether t is one of the generated slots for doctorID on date.
func (g *Generator) Offers(ctx context.Context, doctorID uuid.UUID, date calendar.Date, t calendar.TimeOfDay) (bool, error) {
	seq, err := g.Slots(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	for s := range seq {
		if s == t {
			return true, nil
		}
	}
	return false, nil
}

// SlotsFor expands the active windows matching date's weekday. Windows are
// walked in start order and each contributes start, start+d, ... while the
// whole slot still fits before the window ends. Overlapping windows each
// emit their own slots.
func SlotsFor(windows []Window, date calendar.Date) iter.Seq[calendar.TimeOfDay] {
	day := date.Weekday()
	var selected []Window
	for _, w := range ordered(windows) {
		if w.Active && w.Weekday == day {
			selected = append(selected, w)
		}
	}

	return func(yield func(calendar.TimeOfDay) bool) {
		for _, w := range selected {
			for t := range expand(w) {
				if !yield(t) {
					return
				}
			}
		}
	}
}

func expand(w Window) iter.Seq[calendar.TimeOfDay] {
	return func(yield func(calendar.TimeOfDay) bool) {
		if w.SlotMinutes <= 0 {
			return
		}
		for t := w.Start; ; {
			end, ok := t.Add(w.SlotMinutes)
			if !ok || end > w.End {
				return
			}
			if !yield(t) {
				return
			}
			t = end
		}
	}
}

// ordered sorts by start time; equal starts keep declaration order.
func ordered(windows []Window) []Window {
	out := slices.Clone(windows)
	slices.SortStableFunc(out, func(a, b Window) int {
		return int(a.Start) - int(b.Start)
	})
	return out
}
