package billing

import (
	"sort"
	"time"

	"peakone-billing-backend/models"

	"github.com/google/uuid"
)

// Ticket urgency tiers, ascending hourly rate.
const (
	UrgencyPromotion = "PROMOTION"
	UrgencyLow       = "LOW"
	UrgencyMedium    = "MEDIUM"
	UrgencyHigh      = "HIGH"
)

// Categories that never bill, regardless of urgency or hours.
var nonBillableCategories = map[string]struct{}{
	"Non-billable": {},
	"Migration":    {},
}

// SupportRates maps urgency tier to hourly rate.
type SupportRates map[string]float64

// DefaultSupportRates returns the agency's standard rate card.
func DefaultSupportRates() SupportRates {
	return SupportRates{
		UrgencyPromotion: 75,
		UrgencyLow:       125,
		UrgencyMedium:    175,
		UrgencyHigh:      250,
	}
}

// SupportPolicy carries the configurable parts of ticket pricing: the rate
// card, the monthly complimentary-hours allowance, and the month before
// which tickets never receive free hours.
type SupportPolicy struct {
	Rates             SupportRates
	FreeHoursPerMonth float64
	FreeHoursCutoff   time.Time
}

// DefaultSupportPolicy applies the standard rate card, 2 free hours per
// month, and the 2025-01 benefit cutoff.
func DefaultSupportPolicy() SupportPolicy {
	cutoff, _ := ParseMonth("2025-01")
	return SupportPolicy{
		Rates:             DefaultSupportRates(),
		FreeHoursPerMonth: 2,
		FreeHoursCutoff:   cutoff,
	}
}

// TicketCharge is one ticket's priced line for a month.
type TicketCharge struct {
	RequestID uuid.UUID `json:"requestId"`
	Date      time.Time `json:"date"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Urgency   string    `json:"urgency"`

	Hours            float64 `json:"hours"`
	Rate             float64 `json:"rate"`
	GrossAmount      float64 `json:"grossAmount"`
	FreeHoursApplied float64 `json:"freeHoursApplied"`
	NetAmount        float64 `json:"netAmount"`
}

// SupportTotals aggregates a set of ticket charges.
type SupportTotals struct {
	GrossRevenue     float64 `json:"grossRevenue"`
	Revenue          float64 `json:"revenue"`
	FreeHoursApplied float64 `json:"freeHoursApplied"`
	FreeHoursSavings float64 `json:"freeHoursSavings"`
}

// Billable reports whether a request participates in billing at all.
func Billable(req models.ActivityRequest) bool {
	if req.Status != models.RequestStatusActive {
		return false
	}
	_, excluded := nonBillableCategories[req.Category]
	return !excluded
}

// PriceSupportTickets prices the billable tickets for one month. The
// free-hours allowance is folded across tickets in chronological order; a
// ticket never receives more free hours than it used, and tickets dated
// before the cutoff month are never eligible even when allowance remains.
func PriceSupportTickets(requests []models.ActivityRequest, policy SupportPolicy) ([]TicketCharge, SupportTotals) {
	billable := make([]models.ActivityRequest, 0, len(requests))
	for _, req := range requests {
		if Billable(req) {
			billable = append(billable, req)
		}
	}
	sort.SliceStable(billable, func(a, b int) bool {
		return billable[a].Date.Before(billable[b].Date)
	})

	charges := make([]TicketCharge, 0, len(billable))
	totals := SupportTotals{}
	remaining := policy.FreeHoursPerMonth

	for _, req := range billable {
		rate, ok := policy.Rates[req.Urgency]
		if !ok {
			continue
		}
		gross := Round2(req.EstimatedHours * rate)

		free := 0.0
		if !DateOf(req.Date).Before(policy.FreeHoursCutoff) && remaining > 0 {
			free = remaining
			if free > req.EstimatedHours {
				free = req.EstimatedHours
			}
			remaining -= free
		}
		net := Round2(gross - free*rate)

		charges = append(charges, TicketCharge{
			RequestID:        req.ID,
			Date:             DateOf(req.Date),
			Title:            req.Title,
			Category:         req.Category,
			Urgency:          req.Urgency,
			Hours:            req.EstimatedHours,
			Rate:             rate,
			GrossAmount:      gross,
			FreeHoursApplied: free,
			NetAmount:        net,
		})

		totals.GrossRevenue += gross
		totals.Revenue += net
		totals.FreeHoursApplied += free
	}

	totals.GrossRevenue = Round2(totals.GrossRevenue)
	totals.Revenue = Round2(totals.Revenue)
	totals.FreeHoursSavings = Round2(totals.GrossRevenue - totals.Revenue)
	return charges, totals
}
