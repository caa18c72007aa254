package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invoice lifecycle. Draft invoices are fully editable; the transition to
// sent locks the structure and only payment recording remains possible.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Invoice item types by revenue stream.
const (
	ItemTypeSupport = "support"
	ItemTypeProject = "project"
	ItemTypeHosting = "hosting"
	ItemTypeOther   = "other"
)

type Invoice struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;index"`

	InvoiceNumber string    `gorm:"uniqueIndex;not null"`
	CustomerID    uuid.UUID `gorm:"type:uuid;index;not null"`

	PeriodStart time.Time `gorm:"type:date;not null"`
	PeriodEnd   time.Time `gorm:"type:date;not null"`
	InvoiceDate time.Time `gorm:"type:date"`
	DueDate     time.Time `gorm:"type:date"`

	Status string `gorm:"type:varchar(12);default:'draft';index"`

	Subtotal   float64 `gorm:"type:decimal(12,2);not null"`
	TaxRate    float64 `gorm:"type:decimal(5,4);default:0.0"`
	Tax        float64 `gorm:"type:decimal(12,2);default:0.0"`
	Total      float64 `gorm:"type:decimal(12,2);not null"`
	AmountPaid float64 `gorm:"type:decimal(12,2);default:0.0"`
	BalanceDue float64 `gorm:"type:decimal(12,2);not null"`

	PaidAt *time.Time
	SentAt *time.Time
	Notes  string

	// Hosting charges captured at generation time. Later edits to hosting
	// property dates must never change an already-generated invoice.
	HostingDetailSnapshot datatypes.JSON `gorm:"type:jsonb"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID"`

	gorm.Model
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// Editable reports whether the invoice structure may still change.
func (i *Invoice) Editable() bool {
	return i.Status == InvoiceStatusDraft
}

type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null"`

	ItemType    string  `gorm:"type:varchar(12);not null"`
	Description string  `gorm:"not null"`
	Quantity    float64 `gorm:"type:decimal(8,2);default:1"`
	UnitPrice   float64 `gorm:"type:decimal(10,2);not null"`
	Amount      float64 `gorm:"type:decimal(12,2);not null"`
	SortOrder   int     `gorm:"default:0"`

	// Activity request IDs backing a support line, for link/unlink audits.
	RequestIDs datatypes.JSON `gorm:"type:jsonb"`
}

func (it *InvoiceItem) BeforeCreate(tx *gorm.DB) (err error) {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return
}
