package entity

import (
	"time"

	"go-clinic-queue/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueStatus represents the state of a patient in a doctor's live queue
type QueueStatus string

const (
	QueueStatusWaiting    QueueStatus = "WAITING"
	QueueStatusInProgress QueueStatus = "IN_PROGRESS"
	QueueStatusCompleted  QueueStatus = "COMPLETED"
	QueueStatusCancelled  QueueStatus = "CANCELLED"
)

// QueueEntry orders same-day visits for one doctor.
// Position is only meaningful while WAITING: waiting entries of one doctor on
// one day hold positions 1..N; every other status holds 0.
type QueueEntry struct {
	ID                   uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	AppointmentID        uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex" json:"appointment_id"`
	DoctorID             uuid.UUID   `gorm:"type:uuid;not null;index:idx_queue_entries_doctor_date,priority:1" json:"doctor_id"`
	PatientID            uuid.UUID   `gorm:"type:uuid;not null;index" json:"patient_id"`
	QueueDate            time.Time   `gorm:"type:date;not null;index:idx_queue_entries_doctor_date,priority:2" json:"queue_date"`
	Status               QueueStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Position             int         `gorm:"not null" json:"position"`
	EstimatedWaitMinutes int         `gorm:"not null" json:"estimated_wait_minutes"`
	CheckInTime          time.Time   `gorm:"not null" json:"check_in_time"`
	CalledTime           *time.Time  `json:"called_time,omitempty"`
	CompletedTime        *time.Time  `json:"completed_time,omitempty"`
	CreatedAt            time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Doctor      Doctor      `gorm:"foreignKey:DoctorID;references:UserID" json:"doctor,omitempty"`
	Patient     Patient     `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

func (q *QueueEntry) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the entry still occupies the queue
func (q *QueueEntry) IsActive() bool {
	return q.Status == QueueStatusWaiting || q.Status == QueueStatusInProgress
}

// IsClosed reports whether the entry can never change again
func (q *QueueEntry) IsClosed() bool {
	return q.Status == QueueStatusCompleted || q.Status == QueueStatusCancelled
}

// Start promotes a waiting entry to the consultation room
func (q *QueueEntry) Start(now time.Time) error {
	if q.Status != QueueStatusWaiting {
		return apperror.Newf(apperror.KindIllegalTransition, "cannot call queue entry in status %s", q.Status)
	}
	q.Status = QueueStatusInProgress
	q.Position = 0
	q.EstimatedWaitMinutes = 0
	q.CalledTime = &now
	return nil
}

// Complete closes an in-progress consultation
func (q *QueueEntry) Complete(now time.Time) error {
	if q.IsClosed() {
		return apperror.Newf(apperror.KindTerminalState, "queue entry is already %s", q.Status)
	}
	if q.Status != QueueStatusInProgress {
		return apperror.Newf(apperror.KindIllegalTransition, "cannot complete queue entry in status %s", q.Status)
	}
	q.Status = QueueStatusCompleted
	q.Position = 0
	q.EstimatedWaitMinutes = 0
	q.CompletedTime = &now
	return nil
}

// Cancel removes an active entry from the queue
func (q *QueueEntry) Cancel() error {
	if q.IsClosed() {
		return apperror.Newf(apperror.KindTerminalState, "queue entry is already %s", q.Status)
	}
	q.Status = QueueStatusCancelled
	q.Position = 0
	q.EstimatedWaitMinutes = 0
	return nil
}
