package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
	"github.com/hackgods/clinic-appointment-scheduling/internal/config"
	"github.com/hackgods/clinic-appointment-scheduling/internal/db"
	"github.com/hackgods/clinic-appointment-scheduling/internal/logger"
	"github.com/hackgods/clinic-appointment-scheduling/internal/schedule"
)

var specialties = []struct {
	name     string
	location string
}{
	{"Cardiology", "Block A, Floor 2"},
	{"Dermatology", "Block B, Floor 1"},
	{"General Practice", "Block A, Floor 1"},
	{"Orthopedics", "Block C, Floor 3"},
	{"Neurology", "Block C, Floor 2"},
	{"Pediatrics", "Block B, Floor 2"},
	{"Psychiatry", "Block D, Floor 1"},
	{"Ophthalmology", "Block D, Floor 2"},
}

var qualifications = []string{"MBBS", "MBBS, MD", "MBBS, MS", "MBBS, DNB", "MD, PhD"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 4)
	cancel()
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	faker := gofakeit.New(0)
	doctorsPerSpecialty := envInt("SEED_DOCTORS_PER_SPECIALTY", 5)
	patientCount := envInt("SEED_PATIENTS", 2000)

	bg := context.Background()
	specialtyIDs, err := seedSpecialties(bg, pool)
	if err != nil {
		zl.Fatal("seed specialties", zap.Error(err))
	}
	doctorIDs, err := seedDoctors(bg, pool, faker, specialtyIDs, doctorsPerSpecialty)
	if err != nil {
		zl.Fatal("seed doctors", zap.Error(err))
	}
	zl.Info("doctors seeded", zap.Int("count", len(doctorIDs)))

	if err := seedWindows(bg, schedule.NewPgStore(pool), faker, doctorIDs); err != nil {
		zl.Fatal("seed availability windows", zap.Error(err))
	}
	zl.Info("availability windows seeded")

	if err := seedPatients(bg, pool, faker, patientCount, zl); err != nil {
		zl.Fatal("seed patients", zap.Error(err))
	}

	zl.Info("seed complete")
}

func seedSpecialties(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(specialties))
	for _, s := range specialties {
		var id uuid.UUID
		// Re-running the seed reuses existing specialties by name.
		err := pool.QueryRow(ctx, `
			INSERT INTO specialties (id, name, description, department_location, created_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, uuid.New(), s.name, s.name+" outpatient clinic", s.location).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert specialty %s: %w", s.name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, specialtyIDs []uuid.UUID, perSpecialty int) ([]uuid.UUID, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var ids []uuid.UUID
	for _, specialtyID := range specialtyIDs {
		for i := 0; i < perSpecialty; i++ {
			id := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO doctors (id, name, specialty_id, qualification, experience_years, phone, email, is_active, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, true, now())
			`, id, "Dr. "+faker.Name(), specialtyID,
				qualifications[faker.Number(0, len(qualifications)-1)],
				faker.Number(1, 35), faker.Phone(), faker.Email())
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedWindows gives every doctor a morning and an afternoon window on three
// to five weekdays.
func seedWindows(ctx context.Context, store schedule.Store, faker *gofakeit.Faker, doctorIDs []uuid.UUID) error {
	morningStart, _ := calendar.ParseTimeOfDay("09:00")
	morningEnd, _ := calendar.ParseTimeOfDay("12:00")
	afternoonStart, _ := calendar.ParseTimeOfDay("14:00")
	afternoonEnd, _ := calendar.ParseTimeOfDay("17:00")
	durations := []int{15, 20, 30}

	for _, doctorID := range doctorIDs {
		days := faker.Number(3, 5)
		slot := durations[faker.Number(0, len(durations)-1)]
		for d := 0; d < days; d++ {
			day := time.Weekday(int(time.Monday) + d)
			for _, span := range [][2]calendar.TimeOfDay{{morningStart, morningEnd}, {afternoonStart, afternoonEnd}} {
				w := &schedule.Window{
					DoctorID:    doctorID,
					Weekday:     day,
					Start:       span[0],
					End:         span[1],
					SlotMinutes: slot,
				}
				if err := store.Create(ctx, w); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, zl *zap.Logger) error {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, full_name, phone, email, date_of_birth, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), faker.Name(), faker.Phone(), faker.Email(),
				faker.DateRange(time.Now().AddDate(-90, 0, 0), time.Now().AddDate(-1, 0, 0)))
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		zl.Info("patients seeded", zap.Int("done", end), zap.Int("total", count))
	}
	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
