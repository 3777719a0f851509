package service

import (
	"context"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditService writes the appointment and queue audit trail inside the caller's transaction
type AuditService interface {
	LogCreate(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, action string, entityName string, entityID uuid.UUID, newValue interface{}) error
	LogChange(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, action string, entityName string, entityID uuid.UUID, oldValue, newValue interface{}) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, action string, entityName string, entityID uuid.UUID, newValue interface{}) error {
	return s.write(tx, actorID, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID.String(),
		"new_value": newValue,
	})
}

// LogChange logs a state change with old and new values
func (s *auditService) LogChange(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, action string, entityName string, entityID uuid.UUID, oldValue, newValue interface{}) error {
	return s.write(tx, actorID, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID.String(),
		"old_value": oldValue,
		"new_value": newValue,
	})
}

func (s *auditService) write(tx *gorm.DB, actorID uuid.UUID, action string, metadata entity.JSON) error {
	var userID *uuid.UUID
	if actorID != uuid.Nil {
		userID = &actorID
	}

	auditLog := &entity.AuditLog{
		UserID:   userID,
		Action:   action,
		Metadata: metadata,
	}

	if err := s.auditRepo.Create(tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}
	return nil
}
