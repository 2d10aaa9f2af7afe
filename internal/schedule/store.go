package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store holds the weekly templates. Implementations return windows in
// declaration (creation) order.
type Store interface {
	ListActiveForDay(ctx context.Context, doctorID uuid.UUID, day time.Weekday) ([]Window, error)
	ListActive(ctx context.Context, doctorID uuid.UUID) ([]Window, error)
	Create(ctx context.Context, w *Window) error

	// Deactivate soft deletes a window. Existing bookings are untouched.
	Deactivate(ctx context.Context, id uuid.UUID) (*Window, error)
}
