package repository

import (
	"time"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	Update(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByBookedBy(db *gorm.DB, userID uuid.UUID) ([]entity.Appointment, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error)
	FindByClinicID(db *gorm.DB, clinicID uuid.UUID) ([]entity.Appointment, error)
	FindActiveBySlot(db *gorm.DB, doctorID uuid.UUID, date time.Time, slot string) (*entity.Appointment, error)
	MaxQueueNumber(db *gorm.DB, doctorID uuid.UUID, date time.Time) (int, error)
}
