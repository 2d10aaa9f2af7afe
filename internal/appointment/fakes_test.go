package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
	"github.com/hackgods/clinic-appointment-scheduling/internal/config"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-appointment-scheduling/internal/redis"
	"github.com/hackgods/clinic-appointment-scheduling/internal/schedule"
)

// -- Mock ledger --

// mockRepo enforces the same uniqueness rules as the Postgres schema:
// one scheduled booking per slot and unique reference numbers.
type mockRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Booking
	events   []EventLog

	// insertDelay widens the gap between pre-check and insert so racing
	// goroutines all pass the pre-check.
	insertDelay time.Duration
}

func newMockRepo() *mockRepo {
	return &mockRepo{bookings: make(map[uuid.UUID]*Booking)}
}

func (m *mockRepo) ListScheduled(_ context.Context, doctorID uuid.UUID, date calendar.Date) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if b.DoctorID == doctorID && b.Date == date && b.Status == StatusScheduled {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (m *mockRepo) GetScheduledAt(_ context.Context, key SlotKey) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.Key() == key && b.Status == StatusScheduled {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockRepo) Insert(_ context.Context, b *Booking) error {
	if m.insertDelay > 0 {
		time.Sleep(m.insertDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.Status == StatusScheduled && existing.Key() == b.Key() {
			return ErrSlotConflict
		}
		if existing.ReferenceNumber == b.ReferenceNumber {
			return ErrReferenceCollision
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Status = StatusScheduled
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

func (m *mockRepo) ListByDoctorAndDate(_ context.Context, doctorID uuid.UUID, date calendar.Date) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if b.DoctorID == doctorID && b.Date == date {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (m *mockRepo) ListUpcomingByPatient(_ context.Context, patientID uuid.UUID, from calendar.Date) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if b.PatientID == patientID && b.Status == StatusScheduled && !b.Date.Before(from) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockRepo) ListPastByPatient(_ context.Context, patientID uuid.UUID, before calendar.Date, limit int) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if b.PatientID == patientID && (b.Status.Terminal() || b.Date.Before(before)) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Time > out[j].Time
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockRepo) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.EventType)
	}
	return out
}

// -- Mock directory --

type mockDirectory struct {
	doctors  map[uuid.UUID]bool
	patients map[uuid.UUID]bool
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{doctors: make(map[uuid.UUID]bool), patients: make(map[uuid.UUID]bool)}
}

func (d *mockDirectory) addDoctor() uuid.UUID {
	id := uuid.New()
	d.doctors[id] = true
	return id
}

func (d *mockDirectory) addPatient() uuid.UUID {
	id := uuid.New()
	d.patients[id] = true
	return id
}

func (d *mockDirectory) GetDoctor(_ context.Context, id uuid.UUID) (*directory.Doctor, error) {
	if !d.doctors[id] {
		return nil, directory.ErrDoctorNotFound
	}
	return &directory.Doctor{ID: id, Name: "Dr. Test", Active: true}, nil
}

func (d *mockDirectory) GetPatient(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	if !d.patients[id] {
		return nil, directory.ErrPatientNotFound
	}
	return &directory.Patient{ID: id, FullName: "Test Patient"}, nil
}

func (d *mockDirectory) ListSpecialties(context.Context) ([]directory.Specialty, error) {
	return nil, nil
}

func (d *mockDirectory) ListDoctorsBySpecialty(context.Context, uuid.UUID) ([]directory.Doctor, error) {
	return nil, nil
}

// -- Mock template store --

type mockWindows struct {
	windows []schedule.Window
}

func (m *mockWindows) add(doctorID uuid.UUID, day time.Weekday, start, end string, minutes int) {
	s, _ := calendar.ParseTimeOfDay(start)
	e, _ := calendar.ParseTimeOfDay(end)
	m.windows = append(m.windows, schedule.Window{
		ID: uuid.New(), DoctorID: doctorID, Weekday: day,
		Start: s, End: e, SlotMinutes: minutes, Active: true,
	})
}

func (m *mockWindows) ListActiveForDay(_ context.Context, doctorID uuid.UUID, day time.Weekday) ([]schedule.Window, error) {
	var out []schedule.Window
	for _, w := range m.windows {
		if w.DoctorID == doctorID && w.Weekday == day && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockWindows) ListActive(_ context.Context, doctorID uuid.UUID) ([]schedule.Window, error) {
	var out []schedule.Window
	for _, w := range m.windows {
		if w.DoctorID == doctorID && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockWindows) Create(_ context.Context, w *schedule.Window) error {
	m.windows = append(m.windows, *w)
	return nil
}

func (m *mockWindows) Deactivate(_ context.Context, id uuid.UUID) (*schedule.Window, error) {
	for i := range m.windows {
		if m.windows[i].ID == id {
			m.windows[i].Active = false
			w := m.windows[i]
			return &w, nil
		}
	}
	return nil, schedule.ErrWindowNotFound
}

// -- Fixture --

// Monday 2026-10-19, 08:00 UTC.
var fixedNow = time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)

type fixture struct {
	repo     *mockRepo
	dir      *mockDirectory
	windows  *mockWindows
	metrics  *metrics.Collector
	svc      *Service
	resolver *Resolver
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMockRepo(),
		dir:     newMockDirectory(),
		windows: &mockWindows{},
		metrics: metrics.NewCollector(prometheus.NewRegistry()),
	}
	gen := schedule.NewGenerator(f.windows)
	log := zap.NewNop()
	cfg := config.Config{Location: time.UTC, ReferenceRetries: 3}

	f.svc = NewService(f.repo, f.dir, gen, redisclient.NopLocker{}, f.metrics, cfg, log)
	f.svc.now = func() time.Time { return fixedNow }
	f.resolver = NewResolver(f.repo, f.dir, gen, f.metrics, log)
	return f
}

func mustTime(s string) calendar.TimeOfDay {
	t, err := calendar.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}
