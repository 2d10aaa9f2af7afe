// Package directory provides read access to the clinic's people and
// specialties. Records are managed elsewhere; scheduling only needs to
// know who exists and who is active.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
)

type Specialty struct {
	ID                 uuid.UUID
	Name               string
	Description        *string
	DepartmentLocation *string
	CreatedAt          time.Time
}

type Doctor struct {
	ID              uuid.UUID
	Name            string
	SpecialtyID     uuid.UUID
	Qualification   *string
	ExperienceYears *int
	Active          bool
	CreatedAt       time.Time
}

type Patient struct {
	ID        uuid.UUID
	FullName  string
	Phone     string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the lookup surface used by the scheduling engine and the API.
type Repository interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListSpecialties(ctx context.Context) ([]Specialty, error)

	// ListDoctorsBySpecialty returns active doctors only.
	ListDoctorsBySpecialty(ctx context.Context, specialtyID uuid.UUID) ([]Doctor, error)
}
