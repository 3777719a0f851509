package repository

import (
	"go-clinic-queue/internal/domain/entity"

	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(db *gorm.DB, log *entity.AuditLog) error
	FindByAction(db *gorm.DB, action string) ([]entity.AuditLog, error)
}
