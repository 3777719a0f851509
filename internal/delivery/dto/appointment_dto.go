package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// PatientDetailsRequest describes the relative being booked for when booking_for is OTHER
type PatientDetailsRequest struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Age         int    `json:"age" validate:"gte=0,lte=150"`
	Gender      string `json:"gender" validate:"required,oneof=Male Female Other"`
	PhoneNumber string `json:"phone_number" validate:"required,numeric,min=10,max=15"`
}

type CreateAppointmentRequest struct {
	DoctorID        uuid.UUID              `json:"doctor_id" validate:"required"`
	BookingFor      string                 `json:"booking_for" validate:"required"`
	PatientDetails  *PatientDetailsRequest `json:"patient_details,omitempty" validate:"omitempty"`
	AppointmentDate string                 `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string                 `json:"appointment_time" validate:"required,datetime=15:04"`
	Type            string                 `json:"type" validate:"required"`
	PaymentMode     string                 `json:"payment_mode" validate:"required"`
	Notes           string                 `json:"notes,omitempty" validate:"max=1000"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes,omitempty" validate:"max=2000"`
}

type AddMeetingLinkRequest struct {
	MeetingLink string `json:"meeting_link" validate:"required,url,max=250"`
	Platform    string `json:"platform,omitempty" validate:"max=50"`
}

type RecordPaymentRequest struct {
	Status string `json:"status" validate:"required"`
}

// Response DTOs

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	DoctorName      string    `json:"doctor_name,omitempty"`
	PatientID       uuid.UUID `json:"patient_id"`
	PatientName     string    `json:"patient_name,omitempty"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	BookedByUserID  uuid.UUID `json:"booked_by_user_id"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	QueueNumber     int       `json:"queue_number"`
	PaymentMode     string    `json:"payment_mode"`
	PaymentStatus   string    `json:"payment_status"`
	Amount          string    `json:"amount"`
	Notes           string    `json:"notes,omitempty"`
	MeetingLink     string    `json:"meeting_link,omitempty"`
	MeetingPlatform string    `json:"meeting_platform,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
