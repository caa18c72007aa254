package billing

import (
	"sort"
	"time"
)

// sitesPerFreeCredit earns one free hosted site per twenty active sites.
const sitesPerFreeCredit = 20

// hostingCreditExceptions lists months that grant no hosting credits
// regardless of site count. 2025-07 was negotiated away as a one-off; keep
// this a table of explicit entries, not a recurring rule.
var hostingCreditExceptions = map[string]struct{}{
	"2025-07": {},
}

// HostingCreditPool returns the free-credit pool size for a month.
func HostingCreditPool(activeSites int, month time.Time) int {
	if _, excluded := hostingCreditExceptions[MonthKey(month)]; excluded {
		return 0
	}
	if activeSites < 0 {
		return 0
	}
	return activeSites / sitesPerFreeCredit
}

// AllocateHostingCredits consumes the credit pool greedily across the month's
// charges: FULL charges first, then prorated, descending gross within each
// group, and on equal gross the charge with the larger proration discount.
// Each credited charge is written off in full, so net MRR equals gross MRR
// minus the credited charges' own gross amounts.
//
// The input slice order is preserved; returns the number of credits applied.
func AllocateHostingCredits(charges []HostingCharge, pool int) int {
	order := make([]int, len(charges))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := charges[order[a]], charges[order[b]]
		fullA, fullB := ca.BillingType == BillingFull, cb.BillingType == BillingFull
		if fullA != fullB {
			return fullA
		}
		if ca.GrossAmount != cb.GrossAmount {
			return ca.GrossAmount > cb.GrossAmount
		}
		return ca.StandardFee-ca.GrossAmount > cb.StandardFee-cb.GrossAmount
	})

	applied := 0
	for _, idx := range order {
		if applied >= pool {
			break
		}
		if charges[idx].GrossAmount <= 0 {
			continue
		}
		charges[idx].CreditApplied = true
		charges[idx].NetAmount = 0
		applied++
	}
	return applied
}

// HostingCreditSavings totals the gross written off by applied credits.
func HostingCreditSavings(charges []HostingCharge) float64 {
	savings := 0.0
	for _, c := range charges {
		if c.CreditApplied {
			savings += c.GrossAmount
		}
	}
	return Round2(savings)
}
