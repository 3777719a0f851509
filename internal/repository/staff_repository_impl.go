package repository

import (
	"errors"

	"go-clinic-queue/internal/domain/entity"
	domainRepo "go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type staffRepository struct{}

func NewStaffRepository() domainRepo.StaffRepository {
	return &staffRepository{}
}

func (r *staffRepository) Create(db *gorm.DB, staff *entity.StaffProfile) error {
	return db.Omit(clause.Associations).Create(staff).Error
}

func (r *staffRepository) FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.StaffProfile, error) {
	var staff entity.StaffProfile
	err := db.Where("user_id = ?", userID).First(&staff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}
