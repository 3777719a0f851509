package repository

import (
	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StaffRepository interface {
	Create(db *gorm.DB, staff *entity.StaffProfile) error
	FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.StaffProfile, error)
}
