package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name        string `gorm:"not null"`
	CompanyName string
	Email       string
	Phone       string

	// Net payment terms in days, used to derive invoice due dates.
	PaymentTermsDays int `gorm:"default:30"`

	BillingNotes string
	TotalBilled  float64 `gorm:"type:decimal(12,2);default:0.0"`
	LastInvoiced *time.Time
	IsActive     bool `gorm:"default:true"`

	Invoices []Invoice `gorm:"foreignKey:CustomerID"`

	gorm.Model
}

func (c *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
