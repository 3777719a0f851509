package repository

import (
	"errors"
	"time"

	"go-clinic-queue/internal/domain/entity"
	domainRepo "go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// arrivalOrder is the FIFO order of a doctor's queue: assigned position, then
// check-in instant, then insertion order.
const arrivalOrder = "position ASC, check_in_time ASC, created_at ASC, id ASC"

type queueEntryRepository struct{}

func NewQueueEntryRepository() domainRepo.QueueEntryRepository {
	return &queueEntryRepository{}
}

func (r *queueEntryRepository) Create(db *gorm.DB, entry *entity.QueueEntry) error {
	return db.Omit(clause.Associations).Create(entry).Error
}

func (r *queueEntryRepository) Update(db *gorm.DB, entry *entity.QueueEntry) error {
	return db.Omit(clause.Associations).Save(entry).Error
}

func (r *queueEntryRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.Preload("Doctor").Preload("Patient").Preload("Appointment").
		Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueEntryRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.Where("appointment_id = ?", appointmentID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueEntryRepository) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.QueueEntry, error) {
	var entries []entity.QueueEntry
	err := db.Preload("Patient").Preload("Appointment").
		Where("doctor_id = ? AND queue_date = ?", doctorID, date).
		Order(arrivalOrder).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueEntryRepository) FindByDoctorDateAndStatus(db *gorm.DB, doctorID uuid.UUID, date time.Time, status entity.QueueStatus) ([]entity.QueueEntry, error) {
	var entries []entity.QueueEntry
	err := db.Where("doctor_id = ? AND queue_date = ? AND status = ?", doctorID, date, status).
		Order(arrivalOrder).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *queueEntryRepository) FindNonCancelledByPatientAndDate(db *gorm.DB, patientID uuid.UUID, date time.Time) (*entity.QueueEntry, error) {
	var entry entity.QueueEntry
	err := db.Preload("Doctor").Preload("Patient").Preload("Appointment").
		Where("patient_id = ? AND queue_date = ? AND status != ?", patientID, date, entity.QueueStatusCancelled).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *queueEntryRepository) CountByDoctorDateAndStatus(db *gorm.DB, doctorID uuid.UUID, date time.Time, status entity.QueueStatus) (int64, error) {
	var count int64
	err := db.Model(&entity.QueueEntry{}).
		Where("doctor_id = ? AND queue_date = ? AND status = ?", doctorID, date, status).
		Count(&count).Error
	return count, err
}

// Renumber rewrites the waiting entries of one doctor's day to positions
// 1..N in arrival order and refreshes their estimated wait, which also counts
// a consultation in progress. Rows whose values already match are left
// untouched. Returns the waiting entries in order.
func (r *queueEntryRepository) Renumber(db *gorm.DB, doctorID uuid.UUID, date time.Time, avgConsultationMinutes int) ([]entity.QueueEntry, error) {
	waiting, err := r.FindByDoctorDateAndStatus(db, doctorID, date, entity.QueueStatusWaiting)
	if err != nil {
		return nil, err
	}
	inProgress, err := r.CountByDoctorDateAndStatus(db, doctorID, date, entity.QueueStatusInProgress)
	if err != nil {
		return nil, err
	}

	for i := range waiting {
		position := i + 1
		wait := (i + int(inProgress)) * avgConsultationMinutes
		if waiting[i].Position == position && waiting[i].EstimatedWaitMinutes == wait {
			continue
		}
		err := db.Model(&entity.QueueEntry{}).
			Where("id = ?", waiting[i].ID).
			Updates(map[string]interface{}{
				"position":               position,
				"estimated_wait_minutes": wait,
			}).Error
		if err != nil {
			return nil, err
		}
		waiting[i].Position = position
		waiting[i].EstimatedWaitMinutes = wait
	}

	return waiting, nil
}
