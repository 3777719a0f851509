package repository

import (
	"go-clinic-queue/internal/domain/entity"
	domainRepo "go-clinic-queue/internal/domain/repository"

	"gorm.io/gorm"
)

type auditLogRepository struct{}

func NewAuditLogRepository() domainRepo.AuditLogRepository {
	return &auditLogRepository{}
}

func (r *auditLogRepository) Create(db *gorm.DB, log *entity.AuditLog) error {
	return db.Create(log).Error
}

func (r *auditLogRepository) FindByAction(db *gorm.DB, action string) ([]entity.AuditLog, error) {
	var logs []entity.AuditLog
	err := db.Where("action = ?", action).Order("id ASC").Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
