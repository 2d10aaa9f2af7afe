package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-scheduling/internal/appointment"
	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
)

// BookingService is the booking lifecycle as seen by the HTTP layer.
type BookingService interface {
	CreateBooking(ctx context.Context, req appointment.CreateBookingRequest) (*appointment.Booking, error)
	CancelBooking(ctx context.Context, id, patientID uuid.UUID) (*appointment.Booking, error)
	CompleteBooking(ctx context.Context, id uuid.UUID) (*appointment.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*appointment.Booking, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, date calendar.Date) ([]appointment.Booking, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, scope appointment.Scope) ([]appointment.Booking, error)
}

func createAppointmentHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		date, err := calendar.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		at, err := calendar.ParseTimeOfDay(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be HH:MM")
			return
		}

		b, err := svc.CreateBooking(r.Context(), appointment.CreateBookingRequest{
			PatientID: patientID,
			DoctorID:  doctorID,
			Date:      date,
			Time:      at,
			Notes:     req.Notes,
		})
		if err != nil {
			handleBookingError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(b))
	}
}

func cancelAppointmentHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		b, err := svc.CancelBooking(r.Context(), id, patientID)
		if err != nil {
			handleBookingError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(b))
	}
}

func completeAppointmentHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		b, err := svc.CompleteBooking(r.Context(), id)
		if err != nil {
			handleBookingError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(b))
	}
}

func getAppointmentHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id", "invalid_appointment_id")
		if !ok {
			return
		}

		b, err := svc.GetBooking(r.Context(), id)
		if err != nil {
			handleBookingError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(b))
	}
}

// listAppointmentsHandler serves the doctor's day view: ?doctor_id=&date=.
func listAppointmentsHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		date, err := calendar.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		bookings, err := svc.ListForDoctor(r.Context(), doctorID, date)
		if err != nil {
			handleBookingError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(bookings))
	}
}

func patientAppointmentsHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := pathUUID(w, r, "id", "invalid_patient_id")
		if !ok {
			return
		}

		scope := appointment.Scope(r.URL.Query().Get("scope"))
		bookings, err := svc.ListForPatient(r.Context(), patientID, scope)
		if err != nil {
			handleBookingError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentList(bookings))
	}
}

func handleBookingError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, appointment.ErrPastDate):
		writeError(w, http.StatusUnprocessableEntity, "past_date", err.Error())
	case errors.Is(err, appointment.ErrSlotNotOffered):
		writeError(w, http.StatusUnprocessableEntity, "slot_not_offered", err.Error())
	case errors.Is(err, appointment.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "that time was just booked, please pick another slot")
	case errors.Is(err, appointment.ErrReferenceCollision):
		writeError(w, http.StatusServiceUnavailable, "reference_collision", "could not issue a reference number, please retry")
	case errors.Is(err, appointment.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, appointment.ErrInvalidScope):
		writeError(w, http.StatusBadRequest, "invalid_scope", err.Error())
	case errors.Is(err, appointment.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, directory.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, directory.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		internalError(w, r, log, err)
	}
}

func internalError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "")
}

// pathUUID parses a chi URL parameter, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, param, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
