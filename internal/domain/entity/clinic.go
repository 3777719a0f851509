package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Clinic groups doctors and staff at one location
type Clinic struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Address   string    `gorm:"type:text" json:"address,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Clinic) TableName() string {
	return "clinics"
}

func (c *Clinic) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// StaffProfile links a staff user (receptionist) to the clinic they work at
type StaffProfile struct {
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ClinicID uuid.UUID `gorm:"type:uuid;not null;index" json:"clinic_id"`
	FullName string    `gorm:"type:varchar(255);not null" json:"full_name"`

	// Relationships
	Clinic Clinic `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
}

func (StaffProfile) TableName() string {
	return "staff_profiles"
}
