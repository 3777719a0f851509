package handler

import (
	"net/http"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/usecase"
	"go-clinic-queue/pkg/response"
	"go-clinic-queue/pkg/validator"
)

type QueueHandler struct {
	queueUsecase usecase.QueueUsecase
	validator    *validator.CustomValidator
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase, validator *validator.CustomValidator) *QueueHandler {
	return &QueueHandler{
		queueUsecase: queueUsecase,
		validator:    validator,
	}
}

func (h *QueueHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckInRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	status, err := h.queueUsecase.CheckIn(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "Checked in successfully", status)
}

func (h *QueueHandler) MyStatus(w http.ResponseWriter, r *http.Request) {
	patientID, ok := pathID(w, r, "patientId", "patient")
	if !ok {
		return
	}

	status, err := h.queueUsecase.MyQueueStatus(r.Context(), patientID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Queue status retrieved successfully", status)
}

func (h *QueueHandler) DoctorQueue(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	view, err := h.queueUsecase.DoctorQueueView(r.Context(), doctorID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", view)
}

func (h *QueueHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	status, err := h.queueUsecase.CallNext(r.Context(), doctorID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Next patient called", status)
}

func (h *QueueHandler) Complete(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathID(w, r, "id", "queue entry")
	if !ok {
		return
	}

	status, err := h.queueUsecase.CompleteQueueEntry(r.Context(), entryID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Consultation completed", status)
}
