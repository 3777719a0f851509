package handler

import (
	"encoding/json"
	"net/http"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/usecase"
	"go-clinic-queue/pkg/response"
	"go-clinic-queue/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

// pathID parses a UUID route variable, writing a 400 when it is malformed
func pathID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// decode reads and validates a JSON body, writing a 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v *validator.CustomValidator, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	if err := v.Validate(req); err != nil {
		response.ValidationError(w, v.FormatValidationErrors(err))
		return false
	}
	return true
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.CreateAppointment(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", appointment)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.GetAppointment(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) ListMyAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointmentUsecase.ListMyAppointments(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientId", "patient")
	if !ok {
		return
	}

	appointments, err := h.appointmentUsecase.ListAppointmentsForPatient(r.Context(), patientID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) ListForDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	appointments, err := h.appointmentUsecase.ListAppointmentsForDoctor(r.Context(), doctorID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) ListForClinic(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := pathID(w, r, "clinicId", "clinic")
	if !ok {
		return
	}

	appointments, err := h.appointmentUsecase.ListAppointmentsForClinic(r.Context(), clinicID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.CancelAppointment(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", appointment)
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "appointment")
	if !ok {
		return
	}

	var req dto.UpdateAppointmentStatusRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.UpdateAppointmentStatus(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Appointment status updated successfully", appointment)
}

func (h *AppointmentHandler) AddMeetingLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "appointment")
	if !ok {
		return
	}

	var req dto.AddMeetingLinkRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.AddMeetingLink(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Meeting link saved successfully", appointment)
}

func (h *AppointmentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "appointment")
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.RecordPayment(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment recorded successfully", appointment)
}
