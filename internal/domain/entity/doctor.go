package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Doctor represents doctor-specific profile data, keyed by the doctor's user id
type Doctor struct {
	UserID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	ClinicID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"clinic_id"`
	FullName        string          `gorm:"type:varchar(255);not null" json:"full_name"`
	Specialization  string          `gorm:"type:varchar(100);not null;index" json:"specialization"`
	LicenseNumber   string          `gorm:"type:varchar(50)" json:"license_number,omitempty"`
	ConsultationFee decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"consultation_fee"`
	IsAvailable     bool            `gorm:"not null" json:"is_available"`

	// Relationships
	Clinic Clinic `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
}

func (Doctor) TableName() string {
	return "doctors"
}
