package database

import (
	"go-clinic-queue/internal/domain/entity"

	"gorm.io/gorm"
)

// Models lists every table owned by the service, parents first
func Models() []interface{} {
	return []interface{}{
		&entity.Clinic{},
		&entity.Doctor{},
		&entity.StaffProfile{},
		&entity.Patient{},
		&entity.Appointment{},
		&entity.QueueEntry{},
		&entity.AuditLog{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
