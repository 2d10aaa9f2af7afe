package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/schedule"
)

type AvailabilityService interface {
	ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]calendar.TimeOfDay, error)
}

type ScheduleService interface {
	CreateWindow(ctx context.Context, w *schedule.Window) error
	DeactivateWindow(ctx context.Context, id uuid.UUID) (*schedule.Window, error)
	WeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]schedule.DayPlan, error)
}

// availabilityHandler answers GET /doctors/{id}/availability?date=YYYY-MM-DD
// with the open slot start times, e.g. ["09:00","09:30"].
func availabilityHandler(svc AvailabilityService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
		if !ok {
			return
		}
		date, err := calendar.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.ListAvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			if errors.Is(err, directory.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			internalError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func weeklyScheduleHandler(svc ScheduleService, dir directory.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
		if !ok {
			return
		}
		if _, err := dir.GetDoctor(r.Context(), doctorID); err != nil {
			handleScheduleError(w, r, log, err)
			return
		}

		plan, err := svc.WeeklySchedule(r.Context(), doctorID)
		if err != nil {
			handleScheduleError(w, r, log, err)
			return
		}

		resp := make([]DayScheduleResponse, 0, len(plan))
		for _, day := range plan {
			windows := make([]WindowResponse, 0, len(day.Windows))
			for i := range day.Windows {
				windows = append(windows, toWindowResponse(&day.Windows[i]))
			}
			resp = append(resp, DayScheduleResponse{DayOfWeek: day.Weekday.String(), Windows: windows})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createWindowHandler(svc ScheduleService, dir directory.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "id", "invalid_doctor_id")
		if !ok {
			return
		}

		var req CreateWindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		day, err := calendar.ParseWeekday(req.DayOfWeek)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day_of_week", err.Error())
			return
		}
		start, err := calendar.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}
		end, err := calendar.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return
		}

		if _, err := dir.GetDoctor(r.Context(), doctorID); err != nil {
			handleScheduleError(w, r, log, err)
			return
		}

		win := &schedule.Window{
			DoctorID:    doctorID,
			Weekday:     day,
			Start:       start,
			End:         end,
			SlotMinutes: req.SlotDuration,
		}
		if err := svc.CreateWindow(r.Context(), win); err != nil {
			handleScheduleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWindowResponse(win))
	}
}

func deactivateWindowHandler(svc ScheduleService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_window_id")
		if !ok {
			return
		}

		win, err := svc.DeactivateWindow(r.Context(), id)
		if err != nil {
			handleScheduleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponse(win))
	}
}

func listSpecialtiesHandler(dir directory.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialties, err := dir.ListSpecialties(r.Context())
		if err != nil {
			internalError(w, r, log, err)
			return
		}

		resp := make([]SpecialtyResponse, 0, len(specialties))
		for _, s := range specialties {
			resp = append(resp, SpecialtyResponse{
				ID:                 s.ID,
				Name:               s.Name,
				Description:        s.Description,
				DepartmentLocation: s.DepartmentLocation,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listDoctorsHandler(dir directory.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialtyID, ok := pathUUID(w, r, "id", "invalid_specialty_id")
		if !ok {
			return
		}

		doctors, err := dir.ListDoctorsBySpecialty(r.Context(), specialtyID)
		if err != nil {
			internalError(w, r, log, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, toDoctorResponse(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleScheduleError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusUnprocessableEntity, "invalid_window", err.Error())
	case errors.Is(err, schedule.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	case errors.Is(err, directory.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	default:
		internalError(w, r, log, err)
	}
}
