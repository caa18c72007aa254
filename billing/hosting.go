package billing

import (
	"time"

	"peakone-billing-backend/models"

	"github.com/google/uuid"
)

// Hosting billing types for a property in a given month.
const (
	BillingInactive      = "INACTIVE"
	BillingFull          = "FULL"
	BillingProratedStart = "PRORATED_START"
	BillingProratedEnd   = "PRORATED_END"
)

// HostingCharge is the derived monthly charge for one property. It is
// recomputed fresh every time a month is priced and only ever persisted as
// an invoice snapshot for audit.
type HostingCharge struct {
	PropertyID   uuid.UUID `json:"propertyId"`
	PropertyName string    `json:"propertyName"`
	URL          string    `json:"url,omitempty"`

	BillingType string `json:"billingType"`
	DaysActive  int    `json:"daysActive"`
	DaysInMonth int    `json:"daysInMonth"`

	StandardFee   float64 `json:"standardFee"`
	GrossAmount   float64 `json:"grossAmount"`
	CreditApplied bool    `json:"creditApplied"`
	NetAmount     float64 `json:"netAmount"`
}

// ClassifyHostingMonth resolves a property's billing type and days active for
// a target month from its start/end dates.
//
// A property with no start date, starting after the month ends, or ending
// before the month starts is INACTIVE. A property starting and ending within
// the same month is PRORATED_START with daysActive = end day - start day + 1.
func ClassifyHostingMonth(start, end *time.Time, month time.Time) (string, int) {
	daysInMonth := DaysInMonth(month)
	monthStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	monthEnd := monthStart.AddDate(0, 1, -1)

	if start == nil {
		return BillingInactive, 0
	}
	startDate := DateOf(*start)
	if startDate.After(monthEnd) {
		return BillingInactive, 0
	}
	if end != nil {
		endDate := DateOf(*end)
		if endDate.Before(monthStart) {
			return BillingInactive, 0
		}
		if SameMonth(startDate, month) && SameMonth(endDate, month) {
			return BillingProratedStart, endDate.Day() - startDate.Day() + 1
		}
		if SameMonth(endDate, month) && endDate.Day() < daysInMonth {
			return BillingProratedEnd, endDate.Day()
		}
	}
	if SameMonth(startDate, month) && startDate.Day() > 1 {
		return BillingProratedStart, daysInMonth - startDate.Day() + 1
	}
	return BillingFull, daysInMonth
}

// PriceHostingMonth prices every property for the target month. Properties
// resolving to INACTIVE are excluded from the charge list entirely.
func PriceHostingMonth(properties []models.HostingProperty, month time.Time) []HostingCharge {
	var charges []HostingCharge
	for _, prop := range properties {
		billingType, daysActive := ClassifyHostingMonth(prop.HostingStart, prop.HostingEnd, month)
		if billingType == BillingInactive {
			continue
		}
		daysInMonth := DaysInMonth(month)
		gross := Round2(float64(daysActive) / float64(daysInMonth) * prop.MonthlyFee)
		charges = append(charges, HostingCharge{
			PropertyID:   prop.ID,
			PropertyName: prop.Name,
			URL:          prop.URL,
			BillingType:  billingType,
			DaysActive:   daysActive,
			DaysInMonth:  daysInMonth,
			StandardFee:  prop.MonthlyFee,
			GrossAmount:  gross,
			NetAmount:    gross,
		})
	}
	return charges
}

// MonthHostingDetail is the per-month charge list snapshotted onto an
// invoice at generation time.
type MonthHostingDetail struct {
	Month   string          `json:"month"`
	Charges []HostingCharge `json:"charges"`
}

// GrossMRR sums gross hosting amounts for a month.
func GrossMRR(charges []HostingCharge) float64 {
	total := 0.0
	for _, c := range charges {
		total += c.GrossAmount
	}
	return Round2(total)
}

// NetMRR sums net hosting amounts after credit allocation.
func NetMRR(charges []HostingCharge) float64 {
	total := 0.0
	for _, c := range charges {
		total += c.NetAmount
	}
	return Round2(total)
}
