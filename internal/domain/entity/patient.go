package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient represents the person being seen. UserID is nil for dependents
// (relatives booked by another user); ManagedByUserID names that booker.
type Patient struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id,omitempty"`
	ManagedByUserID *uuid.UUID `gorm:"type:uuid;index" json:"managed_by_user_id,omitempty"`
	FullName        string     `gorm:"type:varchar(100);not null" json:"full_name"`
	Age             int        `json:"age,omitempty"`
	Gender          string     `gorm:"type:varchar(10)" json:"gender,omitempty"`
	PhoneNumber     string     `gorm:"type:varchar(15);index" json:"phone_number,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BelongsTo reports whether the user is the patient or manages the patient
func (p *Patient) BelongsTo(userID uuid.UUID) bool {
	if p.UserID != nil && *p.UserID == userID {
		return true
	}
	return p.ManagedByUserID != nil && *p.ManagedByUserID == userID
}

// Gender constants
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)
