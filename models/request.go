package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity request statuses mirrored from the CRM.
const (
	RequestStatusActive  = "active"
	RequestStatusDeleted = "deleted"
)

// ActivityRequest is a support ticket extracted from client chat intake.
// Requests are archived rather than destroyed so billed months stay auditable.
type ActivityRequest struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CustomerID      uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index"`

	Date      time.Time `gorm:"type:date;index;not null"`
	TimeOfDay string    `gorm:"type:varchar(8)"`

	Title    string `gorm:"not null"`
	Category string `gorm:"type:varchar(40);default:'Support'"`
	Urgency  string `gorm:"type:varchar(12);not null"` // HIGH, MEDIUM, LOW, PROMOTION

	EstimatedHours float64 `gorm:"type:decimal(6,2);not null"`
	Status         string  `gorm:"type:varchar(12);default:'active'"`

	Notes string

	gorm.Model
}

func (r *ActivityRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
