package repository

import (
	"time"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QueueEntryRepository interface {
	Create(db *gorm.DB, entry *entity.QueueEntry) error
	Update(db *gorm.DB, entry *entity.QueueEntry) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error)
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error)
	FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.QueueEntry, error)
	FindByDoctorDateAndStatus(db *gorm.DB, doctorID uuid.UUID, date time.Time, status entity.QueueStatus) ([]entity.QueueEntry, error)
	FindNonCancelledByPatientAndDate(db *gorm.DB, patientID uuid.UUID, date time.Time) (*entity.QueueEntry, error)
	CountByDoctorDateAndStatus(db *gorm.DB, doctorID uuid.UUID, date time.Time, status entity.QueueStatus) (int64, error)
	Renumber(db *gorm.DB, doctorID uuid.UUID, date time.Time, avgConsultationMinutes int) ([]entity.QueueEntry, error)
}
