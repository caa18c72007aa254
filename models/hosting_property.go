package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HostingProperty is a hosted site billed a recurring monthly fee. The
// start/end dates are the only fields billing reads; everything else is
// display metadata.
type HostingProperty struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CustomerID      uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index"`

	Name string `gorm:"not null"`
	URL  string

	HostingStart *time.Time `gorm:"type:date"`
	HostingEnd   *time.Time `gorm:"type:date"` // nil while hosting is active

	MonthlyFee float64 `gorm:"type:decimal(10,2);not null"`
	IsActive   bool    `gorm:"default:true"`

	gorm.Model
}

func (h *HostingProperty) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}
