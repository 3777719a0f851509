package entity

import (
	"time"

	"go-clinic-queue/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusBooked     AppointmentStatus = "BOOKED"
	AppointmentStatusInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentStatusCompleted  AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled  AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow     AppointmentStatus = "NO_SHOW"
)

// AppointmentType distinguishes physical visits from video consultations
type AppointmentType string

const (
	AppointmentTypeInPerson AppointmentType = "IN_PERSON"
	AppointmentTypeOnline   AppointmentType = "ONLINE"
)

// PaymentStatus tracks the consultation fee
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// PaymentMode is how the patient intends to pay
type PaymentMode string

const (
	PaymentModeOnline   PaymentMode = "ONLINE"
	PaymentModeInPerson PaymentMode = "IN_PERSON"
)

// BookingFor tells whether the booker is the patient or books for someone else
type BookingFor string

const (
	BookingForSelf  BookingFor = "SELF"
	BookingForOther BookingFor = "OTHER"
)

const DefaultMeetingPlatform = "GOOGLE_MEET"

// Appointment represents a scheduled visit between a patient and a doctor
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID        uuid.UUID         `gorm:"type:uuid;not null;index;uniqueIndex:idx_appointments_doctor_date_queue,priority:1" json:"doctor_id"`
	PatientID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	ClinicID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"clinic_id"`
	BookedByUserID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"booked_by_user_id"`
	AppointmentDate time.Time         `gorm:"type:date;not null;index;uniqueIndex:idx_appointments_doctor_date_queue,priority:2" json:"appointment_date"`
	AppointmentTime string            `gorm:"type:varchar(5);not null" json:"appointment_time"`
	Type            AppointmentType   `gorm:"type:varchar(20);not null" json:"type"`
	Status          AppointmentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	QueueNumber     int               `gorm:"not null;uniqueIndex:idx_appointments_doctor_date_queue,priority:3" json:"queue_number"`
	PaymentMode     PaymentMode       `gorm:"type:varchar(20);not null" json:"payment_mode"`
	PaymentStatus   PaymentStatus     `gorm:"type:varchar(20);not null" json:"payment_status"`
	Amount          decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Notes           string            `gorm:"type:text" json:"notes,omitempty"`
	MeetingLink     string            `gorm:"type:varchar(250)" json:"meeting_link,omitempty"`
	MeetingPlatform string            `gorm:"type:varchar(50)" json:"meeting_platform,omitempty"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor  Doctor  `gorm:"foreignKey:DoctorID;references:UserID" json:"doctor,omitempty"`
	Patient Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusBooked:     {AppointmentStatusInProgress, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusInProgress: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// IsTerminal reports whether no further transition is possible
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is one of the known statuses
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusBooked, AppointmentStatusInProgress, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	default:
		return false
	}
}

func (t AppointmentType) IsValid() bool {
	return t == AppointmentTypeInPerson || t == AppointmentTypeOnline
}

func (m PaymentMode) IsValid() bool {
	return m == PaymentModeOnline || m == PaymentModeInPerson
}

func (b BookingFor) IsValid() bool {
	return b == BookingForSelf || b == BookingForOther
}

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks the transition table without mutating the appointment
func (a *Appointment) CanTransitionTo(next AppointmentStatus) error {
	if a.Status.IsTerminal() {
		return apperror.Newf(apperror.KindTerminalState, "appointment is already %s", a.Status)
	}
	for _, allowed := range appointmentTransitions[a.Status] {
		if allowed == next {
			return nil
		}
	}
	return apperror.Newf(apperror.KindIllegalTransition, "cannot move appointment from %s to %s", a.Status, next)
}

// TransitionTo applies a state change after validating it against the table
func (a *Appointment) TransitionTo(next AppointmentStatus) error {
	if err := a.CanTransitionTo(next); err != nil {
		return err
	}
	a.Status = next
	return nil
}

// IsActive reports whether the appointment still occupies its slot
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentStatusCancelled
}

// ApplyPayment moves the payment status forward
func (a *Appointment) ApplyPayment(next PaymentStatus) error {
	switch {
	case a.PaymentStatus == PaymentStatusPending && (next == PaymentStatusCompleted || next == PaymentStatusFailed):
	case a.PaymentStatus == PaymentStatusFailed && next == PaymentStatusCompleted:
	case a.PaymentStatus == PaymentStatusCompleted && next == PaymentStatusRefunded:
	default:
		return apperror.Newf(apperror.KindIllegalTransition, "cannot move payment from %s to %s", a.PaymentStatus, next)
	}
	a.PaymentStatus = next
	return nil
}
