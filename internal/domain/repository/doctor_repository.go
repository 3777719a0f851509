package repository

import (
	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorRepository interface {
	Create(db *gorm.DB, doctor *entity.Doctor) error
	FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.Doctor, error)
	LockByUserID(db *gorm.DB, userID uuid.UUID) (*entity.Doctor, error)
}
