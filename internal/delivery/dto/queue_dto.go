package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CheckInRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" validate:"required"`
}

// Response DTOs

type QueueStatusResponse struct {
	QueueEntryID         uuid.UUID  `json:"queue_entry_id"`
	AppointmentID        uuid.UUID  `json:"appointment_id"`
	DoctorID             uuid.UUID  `json:"doctor_id"`
	PatientID            uuid.UUID  `json:"patient_id"`
	PatientName          string     `json:"patient_name,omitempty"`
	QueueNumber          int        `json:"queue_number,omitempty"`
	QueueDate            string     `json:"queue_date"`
	Status               string     `json:"status"`
	Position             int        `json:"position"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	CheckInTime          time.Time  `json:"check_in_time"`
	CalledTime           *time.Time `json:"called_time,omitempty"`
	CompletedTime        *time.Time `json:"completed_time,omitempty"`
}

type DoctorQueueResponse struct {
	DoctorID       uuid.UUID             `json:"doctor_id"`
	Date           string                `json:"date"`
	Current        *QueueStatusResponse  `json:"current,omitempty"`
	Waiting        []QueueStatusResponse `json:"waiting"`
	Completed      []QueueStatusResponse `json:"completed"`
	TotalSeenToday int                   `json:"total_seen_today"`
}
