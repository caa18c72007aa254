package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project invoice statuses tracked in the CRM.
const (
	ProjectStatusNotReady = "NOT_READY"
	ProjectStatusReady    = "READY"
	ProjectStatusInvoiced = "INVOICED"
	ProjectStatusPaid     = "PAID"
)

// Project is a fixed-price deliverable, created when the work completes and
// billed exactly once.
type Project struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CustomerID      uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index"`

	Name           string    `gorm:"not null"`
	Category       string    `gorm:"type:varchar(40);not null"` // LANDING_PAGE, MULTI_FORM, BASIC_FORM, ...
	CompletionDate time.Time `gorm:"type:date;index;not null"`

	Amount        float64 `gorm:"type:decimal(10,2);not null"`
	InvoiceStatus string  `gorm:"type:varchar(20);default:'NOT_READY'"`

	gorm.Model
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
