package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostingCreditPool(t *testing.T) {
	june := date(2025, 6, 1)

	assert.Equal(t, 0, HostingCreditPool(0, june))
	assert.Equal(t, 0, HostingCreditPool(19, june))
	assert.Equal(t, 1, HostingCreditPool(20, june))
	assert.Equal(t, 1, HostingCreditPool(25, june))
	assert.Equal(t, 2, HostingCreditPool(40, june))
	assert.Equal(t, 0, HostingCreditPool(-5, june))
}

func TestHostingCreditPoolExceptionMonth(t *testing.T) {
	// July 2025 grants no credits regardless of site count.
	assert.Equal(t, 0, HostingCreditPool(40, date(2025, 7, 1)))
	assert.Equal(t, 2, HostingCreditPool(40, date(2025, 8, 1)))
	assert.Equal(t, 2, HostingCreditPool(40, date(2024, 7, 1)))
}

func TestAllocateHostingCredits(t *testing.T) {
	charges := []HostingCharge{
		{PropertyName: "prorated-big", BillingType: BillingProratedStart, GrossAmount: 80, NetAmount: 80},
		{PropertyName: "full-small", BillingType: BillingFull, GrossAmount: 25, NetAmount: 25},
		{PropertyName: "full-big", BillingType: BillingFull, GrossAmount: 100, NetAmount: 100},
	}

	applied := AllocateHostingCredits(charges, 2)
	assert.Equal(t, 2, applied)

	// Input order preserved, FULL charges credited before prorated ones.
	assert.Equal(t, "prorated-big", charges[0].PropertyName)
	assert.False(t, charges[0].CreditApplied)
	assert.True(t, charges[1].CreditApplied)
	assert.Equal(t, 0.0, charges[1].NetAmount)
	assert.True(t, charges[2].CreditApplied)
	assert.Equal(t, 0.0, charges[2].NetAmount)
}

func TestAllocateHostingCreditsDescendingGross(t *testing.T) {
	charges := []HostingCharge{
		{PropertyName: "small", BillingType: BillingFull, GrossAmount: 25, NetAmount: 25},
		{PropertyName: "big", BillingType: BillingFull, GrossAmount: 100, NetAmount: 100},
	}

	applied := AllocateHostingCredits(charges, 1)
	assert.Equal(t, 1, applied)
	assert.False(t, charges[0].CreditApplied)
	assert.True(t, charges[1].CreditApplied)
}

func TestAllocateHostingCreditsTieBreakOnDiscount(t *testing.T) {
	// Equal gross: the charge forgoing more of its standard fee wins.
	charges := []HostingCharge{
		{PropertyName: "small-discount", BillingType: BillingProratedStart, StandardFee: 100, GrossAmount: 50, NetAmount: 50},
		{PropertyName: "big-discount", BillingType: BillingProratedStart, StandardFee: 200, GrossAmount: 50, NetAmount: 50},
	}

	applied := AllocateHostingCredits(charges, 1)
	assert.Equal(t, 1, applied)
	assert.False(t, charges[0].CreditApplied)
	assert.True(t, charges[1].CreditApplied)
	assert.Equal(t, 0.0, charges[1].NetAmount)
}

func TestAllocateHostingCreditsSkipsZeroCharges(t *testing.T) {
	charges := []HostingCharge{
		{PropertyName: "free-site", BillingType: BillingFull, GrossAmount: 0, NetAmount: 0},
		{PropertyName: "paid-site", BillingType: BillingProratedEnd, GrossAmount: 40, NetAmount: 40},
	}

	applied := AllocateHostingCredits(charges, 2)
	assert.Equal(t, 1, applied)
	assert.False(t, charges[0].CreditApplied)
	assert.True(t, charges[1].CreditApplied)
}

func TestAllocateHostingCreditsPoolExhausted(t *testing.T) {
	charges := []HostingCharge{
		{BillingType: BillingFull, GrossAmount: 50, NetAmount: 50},
		{BillingType: BillingFull, GrossAmount: 50, NetAmount: 50},
	}

	assert.Equal(t, 0, AllocateHostingCredits(charges, 0))
	for _, c := range charges {
		assert.False(t, c.CreditApplied)
	}
}

func TestHostingCreditSavings(t *testing.T) {
	charges := []HostingCharge{
		{GrossAmount: 100, NetAmount: 0, CreditApplied: true},
		{GrossAmount: 53.33, NetAmount: 53.33},
		{GrossAmount: 25, NetAmount: 0, CreditApplied: true},
	}

	assert.InDelta(t, 125, HostingCreditSavings(charges), 0.001)
}
