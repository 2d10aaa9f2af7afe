package appointment

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/metrics"
)

var (
	today     = calendar.DateOf(fixedNow)
	yesterday = today.AddDays(-1)
	nextWeek  = today.AddDays(7)
)

func TestCreateBooking_Success(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)

	b, err := f.svc.CreateBooking(context.Background(), CreateBookingRequest{
		PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("09:30"), Notes: "follow-up",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", b.Status)
	}
	if !strings.HasPrefix(b.ReferenceNumber, "APT"+today.Stamp()) {
		t.Errorf("reference %q should start with APT%s", b.ReferenceNumber, today.Stamp())
	}
	if !ValidReference(b.ReferenceNumber) {
		t.Errorf("reference %q has the wrong shape", b.ReferenceNumber)
	}
	if b.Notes != "follow-up" {
		t.Errorf("notes = %q", b.Notes)
	}
	if got := f.repo.eventTypes(); !slices.Equal(got, []string{EventAppointmentCreated}) {
		t.Errorf("events = %v", got)
	}
	if v := testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeBooked)); v != 1 {
		t.Errorf("booked counter = %v", v)
	}
}

func TestCreateBooking_PastDateWinsOverEverything(t *testing.T) {
	f := newFixture()

	// Unknown doctor and patient, off-grid time: still a past-date error.
	_, err := f.svc.CreateBooking(context.Background(), CreateBookingRequest{
		PatientID: uuid.New(), DoctorID: uuid.New(), Date: yesterday, Time: mustTime("03:17"),
	})
	if !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate, got %v", err)
	}
}

func TestCreateBooking_TodayIsAllowed(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "14:00", "17:00", 30)

	if _, err := f.svc.CreateBooking(context.Background(), CreateBookingRequest{
		PatientID: pat, DoctorID: doc, Date: today, Time: mustTime("14:00"),
	}); err != nil {
		t.Fatalf("booking today should succeed, got %v", err)
	}
}

func TestCreateBooking_UnknownDoctorOrPatient(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
		PatientID: pat, DoctorID: uuid.New(), Date: nextWeek, Time: mustTime("09:00"),
	})
	if !errors.Is(err, directory.ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}

	_, err = f.svc.CreateBooking(ctx, CreateBookingRequest{
		PatientID: uuid.New(), DoctorID: doc, Date: nextWeek, Time: mustTime("09:00"),
	})
	if !errors.Is(err, directory.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestCreateBooking_RejectsOffGridTime(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	for _, at := range []string{"09:15", "12:00", "08:30", "15:00"} {
		_, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
			PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime(at),
		})
		if !errors.Is(err, ErrSlotNotOffered) {
			t.Errorf("%s: expected ErrSlotNotOffered, got %v", at, err)
		}
	}

	// Tuesday has no windows at all.
	_, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
		PatientID: pat, DoctorID: doc, Date: nextWeek.AddDays(1), Time: mustTime("09:00"),
	})
	if !errors.Is(err, ErrSlotNotOffered) {
		t.Errorf("expected ErrSlotNotOffered on a day without windows, got %v", err)
	}
}

func TestCreateBooking_SecondBookingConflicts(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	first := f.dir.addPatient()
	second := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	req := CreateBookingRequest{PatientID: first, DoctorID: doc, Date: nextWeek, Time: mustTime("10:00")}
	if _, err := f.svc.CreateBooking(ctx, req); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	req.PatientID = second
	if _, err := f.svc.CreateBooking(ctx, req); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}

	// Same patient again is still a conflict.
	req.PatientID = first
	if _, err := f.svc.CreateBooking(ctx, req); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict for repeat, got %v", err)
	}
	if v := testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeConflict)); v != 2 {
		t.Errorf("conflict counter = %v", v)
	}
}

func TestCreateBooking_ConcurrentAtMostOneWins(t *testing.T) {
	f := newFixture()
	f.repo.insertDelay = 5 * time.Millisecond
	doc := f.dir.addDoctor()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)

	const contenders = 16
	patients := make([]uuid.UUID, contenders)
	for i := range patients {
		patients[i] = f.dir.addPatient()
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for _, pat := range patients {
		wg.Add(1)
		go func(pat uuid.UUID) {
			defer wg.Done()
			<-start
			_, err := f.svc.CreateBooking(context.Background(), CreateBookingRequest{
				PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("11:30"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(pat)
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly one success, got %d", successes)
	}
	if conflicts != contenders-1 {
		t.Errorf("expected %d conflicts, got %d", contenders-1, conflicts)
	}
	if len(others) > 0 {
		t.Errorf("unexpected errors: %v", others)
	}

	scheduled, _ := f.repo.ListScheduled(context.Background(), doc, nextWeek)
	if len(scheduled) != 1 {
		t.Errorf("ledger holds %d scheduled bookings for the slot", len(scheduled))
	}
}

func TestCreateBooking_RetriesReferenceCollision(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	codes := []string{"APT20261019AAAAAA", "APT20261019AAAAAA", "APT20261019BBBBBB"}
	var calls int
	f.svc.newRef = func(calendar.Date) (string, error) {
		code := codes[calls]
		calls++
		return code, nil
	}

	if _, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
		PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("09:00"),
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	b, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
		PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("09:30"),
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if b.ReferenceNumber != "APT20261019BBBBBB" {
		t.Errorf("reference = %s", b.ReferenceNumber)
	}
	if calls != 3 {
		t.Errorf("expected 3 reference draws, got %d", calls)
	}
}

func TestCreateBooking_ReferenceCollisionSurfacesAfterRetries(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	var calls int
	f.svc.newRef = func(calendar.Date) (string, error) {
		calls++
		return "APT20261019ZZZZZZ", nil
	}

	if _, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
		PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("09:00"),
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	calls = 0
	_, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
		PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("10:00"),
	})
	if !errors.Is(err, ErrReferenceCollision) {
		t.Fatalf("expected ErrReferenceCollision, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if got, _ := f.repo.GetScheduledAt(ctx, SlotKey{DoctorID: doc, Date: nextWeek, Time: mustTime("10:00")}); got != nil {
		t.Error("failed booking must not occupy the slot")
	}
}

func TestCancelBooking(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	owner := f.dir.addPatient()
	stranger := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, CreateBookingRequest{
		PatientID: owner, DoctorID: doc, Date: nextWeek, Time: mustTime("09:00"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.CancelBooking(ctx, b.ID, stranger); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}

	cancelled, err := f.svc.CancelBooking(ctx, b.ID, owner)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %s", cancelled.Status)
	}
	if !cancelled.UpdatedAt.After(b.CreatedAt) && !cancelled.UpdatedAt.Equal(b.CreatedAt) {
		t.Error("expected updated_at to be stamped")
	}

	if _, err := f.svc.CancelBooking(ctx, uuid.New(), owner); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestTerminalStatesNeverChange(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	cancelled, _ := f.svc.CreateBooking(ctx, CreateBookingRequest{PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("09:00")})
	completed, _ := f.svc.CreateBooking(ctx, CreateBookingRequest{PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("09:30")})
	if _, err := f.svc.CancelBooking(ctx, cancelled.ID, pat); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CompleteBooking(ctx, completed.ID); err != nil {
		t.Fatal(err)
	}

	for _, id := range []uuid.UUID{cancelled.ID, completed.ID} {
		before, _ := f.repo.GetByID(ctx, id)

		if _, err := f.svc.CancelBooking(ctx, id, pat); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("cancel %s: expected ErrInvalidTransition, got %v", before.Status, err)
		}
		if _, err := f.svc.CompleteBooking(ctx, id); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("complete %s: expected ErrInvalidTransition, got %v", before.Status, err)
		}

		after, _ := f.repo.GetByID(ctx, id)
		if *after != *before {
			t.Errorf("terminal booking mutated: %+v -> %+v", before, after)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, true},
		{StatusScheduled, StatusScheduled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusScheduled, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestListForPatient(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	if _, err := f.svc.CreateBooking(ctx, CreateBookingRequest{PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("09:00")}); err != nil {
		t.Fatal(err)
	}

	upcoming, err := f.svc.ListForPatient(ctx, pat, ScopeUpcoming)
	if err != nil || len(upcoming) != 1 {
		t.Errorf("upcoming = %v, %v", upcoming, err)
	}
	past, err := f.svc.ListForPatient(ctx, pat, ScopePast)
	if err != nil || len(past) != 0 {
		t.Errorf("past = %v, %v", past, err)
	}
	if _, err := f.svc.ListForPatient(ctx, pat, "everything"); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("expected ErrInvalidScope, got %v", err)
	}
}

func TestListForPatient_HistoryKeepsCancelledAndMissed(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	pat := f.dir.addPatient()
	f.windows.add(doc, time.Monday, "09:00", "12:00", 30)
	ctx := context.Background()

	future, err := f.svc.CreateBooking(ctx, CreateBookingRequest{PatientID: pat, DoctorID: doc, Date: nextWeek, Time: mustTime("09:00")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.CancelBooking(ctx, future.ID, pat); err != nil {
		t.Fatal(err)
	}

	// A booking from last week that nobody marked as completed.
	missed := &Booking{
		ReferenceNumber: "APT20261012MISSED",
		PatientID:       pat,
		DoctorID:        doc,
		Date:            today.AddDays(-7),
		Time:            mustTime("10:00"),
	}
	if err := f.repo.Insert(ctx, missed); err != nil {
		t.Fatal(err)
	}

	upcoming, err := f.svc.ListForPatient(ctx, pat, ScopeUpcoming)
	if err != nil || len(upcoming) != 0 {
		t.Fatalf("upcoming = %v, %v", upcoming, err)
	}

	past, err := f.svc.ListForPatient(ctx, pat, ScopePast)
	if err != nil {
		t.Fatal(err)
	}
	if len(past) != 2 {
		t.Fatalf("expected cancelled and missed bookings in history, got %d", len(past))
	}
	if past[0].ID != future.ID || past[0].Status != StatusCancelled {
		t.Errorf("expected cancelled future booking first, got %+v", past[0])
	}
	if past[1].ID != missed.ID || past[1].Status != StatusScheduled {
		t.Errorf("expected missed booking second, got %+v", past[1])
	}
}

// Monday window 14:00-17:00: book, conflict, cancel, rebook.
func TestScenario_BookConflictCancelRebook(t *testing.T) {
	f := newFixture()
	doc := f.dir.addDoctor()
	p1, p2, p3 := f.dir.addPatient(), f.dir.addPatient(), f.dir.addPatient()
	f.windows.add(doc, time.Monday, "14:00", "17:00", 30)
	ctx := context.Background()
	at := mustTime("14:00")

	first, err := f.svc.CreateBooking(ctx, CreateBookingRequest{PatientID: p1, DoctorID: doc, Date: today, Time: at})
	if err != nil {
		t.Fatalf("p1 booking: %v", err)
	}
	if !strings.HasPrefix(first.ReferenceNumber, "APT"+today.Stamp()) {
		t.Errorf("reference = %s", first.ReferenceNumber)
	}

	if _, err := f.svc.CreateBooking(ctx, CreateBookingRequest{PatientID: p2, DoctorID: doc, Date: today, Time: at}); !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("p2: expected ErrSlotConflict, got %v", err)
	}

	if _, err := f.svc.CancelBooking(ctx, first.ID, p1); err != nil {
		t.Fatalf("p1 cancel: %v", err)
	}

	third, err := f.svc.CreateBooking(ctx, CreateBookingRequest{PatientID: p3, DoctorID: doc, Date: today, Time: at})
	if err != nil {
		t.Fatalf("p3 booking: %v", err)
	}
	if third.ReferenceNumber == first.ReferenceNumber {
		t.Error("expected a fresh reference code")
	}

	all, _ := f.svc.ListForDoctor(ctx, doc, today)
	if len(all) != 2 {
		t.Errorf("expected cancelled history to be kept, got %d rows", len(all))
	}
}
