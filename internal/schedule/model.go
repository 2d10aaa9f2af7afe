package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
)

const DefaultSlotMinutes = 30

var (
	ErrWindowNotFound   = errors.New("availability window not found")
	ErrInvalidWindow    = errors.New("invalid availability window")
	ErrWindowOutOfRange = errors.New("window must start before it ends")
	ErrInvalidSlotSize  = errors.New("slot duration must be positive")
)

// Window is one recurring weekly block of working hours for a doctor.
type Window struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	Weekday     time.Weekday
	Start       calendar.TimeOfDay
	End         calendar.TimeOfDay
	SlotMinutes int
	Active      bool
	CreatedAt   time.Time
}

func (w Window) Validate() error {
	if w.DoctorID == uuid.Nil {
		return fmt.Errorf("%w: doctor is required", ErrInvalidWindow)
	}
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return fmt.Errorf("%w: %w", ErrInvalidWindow, calendar.ErrInvalidWeekday)
	}
	if !w.Start.Valid() || w.Start >= w.End || int(w.End) > 24*60 {
		return fmt.Errorf("%w: %w", ErrInvalidWindow, ErrWindowOutOfRange)
	}
	if w.SlotMinutes <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidWindow, ErrInvalidSlotSize)
	}
	return nil
}

// Overlaps reports whether two windows on the same day share any minute.
func (w Window) Overlaps(o Window) bool {
	return w.DoctorID == o.DoctorID &&
		w.Weekday == o.Weekday &&
		w.Start < o.End && o.Start < w.End
}

// Overlap is a pair of active windows that claim the same time on one day.
type Overlap struct {
	First  Window
	Second Window
}

// FindOverlaps returns every overlapping pair among the active windows.
func FindOverlaps(windows []Window) []Overlap {
	var out []Overlap
	for i := range windows {
		if !windows[i].Active {
			continue
		}
		for j := i + 1; j < len(windows); j++ {
			if windows[j].Active && windows[i].Overlaps(windows[j]) {
				out = append(out, Overlap{First: windows[i], Second: windows[j]})
			}
		}
	}
	return out
}

// DayPlan groups a doctor's active windows by weekday for display.
type DayPlan struct {
	Weekday time.Weekday
	Windows []Window
}

// WeeklyPlan orders windows Monday first, matching the clinic's week.
func WeeklyPlan(windows []Window) []DayPlan {
	byDay := make(map[time.Weekday][]Window)
	for _, w := range windows {
		if w.Active {
			byDay[w.Weekday] = append(byDay[w.Weekday], w)
		}
	}

	var plan []DayPlan
	for i := 0; i < 7; i++ {
		day := time.Weekday((int(time.Monday) + i) % 7)
		if ws, ok := byDay[day]; ok {
			plan = append(plan, DayPlan{Weekday: day, Windows: ordered(ws)})
		}
	}
	return plan
}
