package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/appointment"
	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/schedule"
)

type CreateAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"note"`
}

type CancelAppointmentRequest struct {
	PatientID string `json:"patient_id"`
}

type CreateWindowRequest struct {
	DayOfWeek    string `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SlotDuration int    `json:"slot_duration"`
}

type AppointmentResponse struct {
	ID              uuid.UUID          `json:"id"`
	ReferenceNumber string             `json:"reference_number"`
	PatientID       uuid.UUID          `json:"patient_id"`
	DoctorID        uuid.UUID          `json:"doctor_id"`
	Date            calendar.Date      `json:"date"`
	Time            calendar.TimeOfDay `json:"time"`
	Status          string             `json:"status"`
	Notes           string             `json:"note,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func toAppointmentResponse(b *appointment.Booking) AppointmentResponse {
	return AppointmentResponse{
		ID:              b.ID,
		ReferenceNumber: b.ReferenceNumber,
		PatientID:       b.PatientID,
		DoctorID:        b.DoctorID,
		Date:            b.Date,
		Time:            b.Time,
		Status:          string(b.Status),
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func toAppointmentList(bs []appointment.Booking) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toAppointmentResponse(&bs[i]))
	}
	return out
}

type WindowResponse struct {
	ID           uuid.UUID          `json:"id"`
	DoctorID     uuid.UUID          `json:"doctor_id"`
	DayOfWeek    string             `json:"day_of_week"`
	StartTime    calendar.TimeOfDay `json:"start_time"`
	EndTime      calendar.TimeOfDay `json:"end_time"`
	SlotDuration int                `json:"slot_duration"`
	Active       bool               `json:"active"`
}

func toWindowResponse(w *schedule.Window) WindowResponse {
	return WindowResponse{
		ID:           w.ID,
		DoctorID:     w.DoctorID,
		DayOfWeek:    w.Weekday.String(),
		StartTime:    w.Start,
		EndTime:      w.End,
		SlotDuration: w.SlotMinutes,
		Active:       w.Active,
	}
}

type DayScheduleResponse struct {
	DayOfWeek string           `json:"day_of_week"`
	Windows   []WindowResponse `json:"windows"`
}

type DoctorResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Qualification   *string   `json:"qualification,omitempty"`
	ExperienceYears *int      `json:"experience_years,omitempty"`
}

func toDoctorResponse(d directory.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:              d.ID,
		Name:            d.Name,
		Qualification:   d.Qualification,
		ExperienceYears: d.ExperienceYears,
	}
}

type SpecialtyResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Description        *string   `json:"description,omitempty"`
	DepartmentLocation *string   `json:"department_location,omitempty"`
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
