package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"peakone-billing-backend/billing"
	"peakone-billing-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func junePeriod(t *testing.T) billing.Period {
	t.Helper()
	period, err := billing.NewPeriod(day(2025, 6, 1), day(2025, 6, 30))
	require.NoError(t, err)
	return period
}

func TestGenerateInvoice(t *testing.T) {
	db := setupTestDB(t)
	billingSvc := NewBillingService(db, nil)
	svc := NewInvoiceService(db, nil, billingSvc)
	customer := seedCustomer(t, db)
	userID := uuid.New()

	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 3)
	seedProject(t, db, customer.ID, "LANDING_PAGE", day(2025, 6, 15), 1200)
	seedProperty(t, db, customer.ID, dayPtr(2025, 6, 15), nil, 100)

	invoice, err := svc.Generate(context.Background(), userID, customer.ID, junePeriod(t))
	require.NoError(t, err)

	assert.Equal(t, models.InvoiceStatusDraft, invoice.Status)
	assert.True(t, strings.HasPrefix(invoice.InvoiceNumber, "INV-"))
	assert.Len(t, invoice.Items, 3)

	// Support $250 + free landing page $0 + prorated hosting $53.33.
	assert.InDelta(t, 303.33, invoice.Subtotal, 0.001)
	assert.Equal(t, invoice.Subtotal, invoice.Total)
	assert.Equal(t, invoice.Total, invoice.BalanceDue)
	assert.Equal(t, 0.0, invoice.AmountPaid)

	// Due date follows the customer's payment terms.
	assert.True(t, invoice.DueDate.Equal(invoice.InvoiceDate.AddDate(0, 0, 30)))

	// Hosting snapshot captured at generation time.
	var snapshot []billing.MonthHostingDetail
	require.NoError(t, json.Unmarshal(invoice.HostingDetailSnapshot, &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, "2025-06", snapshot[0].Month)
	require.Len(t, snapshot[0].Charges, 1)
	assert.Equal(t, billing.BillingProratedStart, snapshot[0].Charges[0].BillingType)

	// Customer rollups updated.
	var reloaded models.Customer
	require.NoError(t, db.First(&reloaded, "id = ?", customer.ID).Error)
	assert.InDelta(t, invoice.Total, reloaded.TotalBilled, 0.001)
	require.NotNil(t, reloaded.LastInvoiced)
}

func TestGenerateInvoiceItemOrdering(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)

	seedRequest(t, db, customer.ID, day(2025, 6, 5), "LOW", 1)
	seedRequest(t, db, customer.ID, day(2025, 6, 6), "HIGH", 1)
	seedProject(t, db, customer.ID, "CUSTOM_BUILD", day(2025, 6, 10), 500)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)
	require.Len(t, invoice.Items, 3)

	// Support lines first (highest rate leading), then projects.
	assert.Equal(t, models.ItemTypeSupport, invoice.Items[0].ItemType)
	assert.Equal(t, 250.0, invoice.Items[0].UnitPrice)
	assert.Equal(t, models.ItemTypeSupport, invoice.Items[1].ItemType)
	assert.Equal(t, 125.0, invoice.Items[1].UnitPrice)
	assert.Equal(t, models.ItemTypeProject, invoice.Items[2].ItemType)

	for i, item := range invoice.Items {
		assert.Equal(t, i, item.SortOrder)
	}
}

func TestGenerateInvoiceNothingToBill(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)

	_, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	assert.ErrorIs(t, err, billing.ErrNothingToBill)
}

func TestGenerateInvoiceUnknownCustomer(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))

	_, err := svc.Generate(context.Background(), uuid.New(), uuid.New(), junePeriod(t))
	assert.ErrorIs(t, err, billing.ErrUnknownReference)
}

func TestSnapshotImmuneToPropertyEdits(t *testing.T) {
	db := setupTestDB(t)
	billingSvc := NewBillingService(db, nil)
	svc := NewInvoiceService(db, nil, billingSvc)
	customer := seedCustomer(t, db)

	property := seedProperty(t, db, customer.ID, dayPtr(2024, 1, 1), nil, 100)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)

	// End the property retroactively and drop the cache, as a controller
	// mutation would.
	require.NoError(t, db.Model(&property).Update("hosting_end", day(2025, 6, 10)).Error)
	billingSvc.Invalidate(customer.ID)

	reloaded, err := svc.Get(context.Background(), invoice.ID)
	require.NoError(t, err)

	var snapshot []billing.MonthHostingDetail
	require.NoError(t, json.Unmarshal(reloaded.HostingDetailSnapshot, &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, billing.BillingFull, snapshot[0].Charges[0].BillingType)
	assert.Equal(t, 100.0, snapshot[0].Charges[0].GrossAmount)
}

func TestSendLocksInvoice(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)
	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 3)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)

	sent, err := svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	// Double send rejected.
	_, err = svc.Send(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, billing.ErrInvoiceLocked)

	// Structure edits rejected after sending.
	notes := "late edit"
	_, err = svc.UpdateDraft(context.Background(), invoice.ID, UpdateDraftInput{Notes: &notes})
	assert.ErrorIs(t, err, billing.ErrInvoiceLocked)

	err = svc.DeleteDraft(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, billing.ErrInvoiceLocked)
}

func TestUpdateDraftNotesAndDueDate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)
	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 3)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)

	notes := "net 45 agreed by phone"
	due := day(2025, 8, 15)
	updated, err := svc.UpdateDraft(context.Background(), invoice.ID, UpdateDraftInput{
		Notes:   &notes,
		DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.True(t, updated.DueDate.Equal(due))
	// Items untouched.
	assert.Len(t, updated.Items, len(invoice.Items))
}

func TestUpdateDraftPeriodRegeneratesItems(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)

	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 3)
	seedRequest(t, db, customer.ID, day(2025, 7, 10), "LOW", 4)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)
	assert.InDelta(t, 250.0, invoice.Subtotal, 0.001)

	start := day(2025, 7, 1)
	end := day(2025, 7, 31)
	updated, err := svc.UpdateDraft(context.Background(), invoice.ID, UpdateDraftInput{
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	require.NoError(t, err)

	// July: 4 LOW hours minus 2 free at $125.
	assert.InDelta(t, 250.0, updated.Subtotal, 0.001)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 125.0, updated.Items[0].UnitPrice)
}

func TestRegenerateUnchangedDraftIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)

	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 3)
	seedProperty(t, db, customer.ID, dayPtr(2025, 6, 15), nil, 100)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)

	// Re-submitting the same period rebuilds the items to identical totals.
	start, end := day(2025, 6, 1), day(2025, 6, 30)
	regenerated, err := svc.UpdateDraft(context.Background(), invoice.ID, UpdateDraftInput{
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	require.NoError(t, err)

	assert.Equal(t, invoice.Subtotal, regenerated.Subtotal)
	assert.Equal(t, invoice.Total, regenerated.Total)
	assert.Len(t, regenerated.Items, len(invoice.Items))
	assert.Equal(t, string(invoice.HostingDetailSnapshot), string(regenerated.HostingDetailSnapshot))
}

func TestPayPartialThenFull(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)
	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 4)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)
	assert.Equal(t, 500.0, invoice.Total)

	// Payment before sending is rejected.
	_, err = svc.Pay(context.Background(), invoice.ID, 100, day(2025, 7, 1))
	assert.ErrorIs(t, err, billing.ErrInvoiceLocked)

	_, err = svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	partial, err := svc.Pay(context.Background(), invoice.ID, 200, day(2025, 7, 1))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, partial.Status)
	assert.Equal(t, 200.0, partial.AmountPaid)
	assert.Equal(t, 300.0, partial.BalanceDue)
	assert.Nil(t, partial.PaidAt)

	paid, err := svc.Pay(context.Background(), invoice.ID, 300, day(2025, 7, 5))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, 0.0, paid.BalanceDue)
	require.NotNil(t, paid.PaidAt)
}

func TestPayRejectsBadAmounts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)
	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 4)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), invoice.ID, 0, day(2025, 7, 1))
	assert.ErrorIs(t, err, billing.ErrInvalidPayment)

	_, err = svc.Pay(context.Background(), invoice.ID, -50, day(2025, 7, 1))
	assert.ErrorIs(t, err, billing.ErrInvalidPayment)

	// Overpayment rejected outright, never credited forward.
	_, err = svc.Pay(context.Background(), invoice.ID, 500.01, day(2025, 7, 1))
	assert.ErrorIs(t, err, billing.ErrPaymentOverage)

	// Exact balance still accepted.
	paid, err := svc.Pay(context.Background(), invoice.ID, 500, day(2025, 7, 1))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
}

func TestCancelInvoice(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)
	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 4)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)

	// Drafts are deleted, not cancelled.
	_, err = svc.Cancel(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, billing.ErrInvoiceLocked)

	_, err = svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusCancelled, cancelled.Status)

	// No payments on a cancelled invoice.
	_, err = svc.Pay(context.Background(), invoice.ID, 100, day(2025, 7, 1))
	assert.ErrorIs(t, err, billing.ErrInvoiceLocked)
}

func TestDeleteDraft(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)
	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 4)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDraft(context.Background(), invoice.ID))

	_, err = svc.Get(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, billing.ErrUnknownReference)

	var count int64
	require.NoError(t, db.Model(&models.InvoiceItem{}).
		Where("invoice_id = ?", invoice.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestMarkOverdue(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)
	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 4)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	// Not yet due.
	flipped, err := svc.MarkOverdue(context.Background(), invoice.DueDate)
	require.NoError(t, err)
	assert.Empty(t, flipped)

	flipped, err = svc.MarkOverdue(context.Background(), invoice.DueDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, flipped, 1)
	assert.Equal(t, models.InvoiceStatusOverdue, flipped[0].Status)

	// Overdue invoices still accept payment.
	paid, err := svc.Pay(context.Background(), invoice.ID, 500, day(2025, 8, 1))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
}

func TestLinkAndUnlinkRequest(t *testing.T) {
	db := setupTestDB(t)
	billingSvc := NewBillingService(db, nil)
	svc := NewInvoiceService(db, nil, billingSvc)
	customer := seedCustomer(t, db)

	first := seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 3)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)
	assert.InDelta(t, 250.0, invoice.Subtotal, 0.001)

	// A ticket logged after generation is linked in manually.
	extra := seedRequest(t, db, customer.ID, day(2025, 6, 20), "HIGH", 2)
	linked, err := svc.LinkRequest(context.Background(), invoice.ID, extra.ID)
	require.NoError(t, err)

	// 5 HIGH hours minus 2 free at $250.
	assert.InDelta(t, 750.0, linked.Subtotal, 0.001)

	// Linking the same request twice is a no-op.
	again, err := svc.LinkRequest(context.Background(), invoice.ID, extra.ID)
	require.NoError(t, err)
	assert.InDelta(t, 750.0, again.Subtotal, 0.001)

	// Unlinking restores the original pricing.
	unlinked, err := svc.UnlinkRequest(context.Background(), invoice.ID, extra.ID)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, unlinked.Subtotal, 0.001)

	// The remaining line still references the first ticket.
	var ids []string
	require.Len(t, unlinked.Items, 1)
	require.NoError(t, json.Unmarshal(unlinked.Items[0].RequestIDs, &ids))
	assert.Equal(t, []string{first.ID.String()}, ids)
}

func TestLinkRequestUnknownUrgencySkippedAndLogged(t *testing.T) {
	db := setupTestDB(t)
	core, observed := observer.New(zap.WarnLevel)
	log := zap.New(core)
	svc := NewInvoiceService(db, log, NewBillingService(db, nil))
	customer := seedCustomer(t, db)

	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 3)
	bad := seedRequest(t, db, customer.ID, day(2025, 6, 12), "SEVERE", 2)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)

	linked, err := svc.LinkRequest(context.Background(), invoice.ID, bad.ID)
	require.NoError(t, err)

	// The unrateable ticket contributes nothing and the invoice stays intact.
	assert.InDelta(t, invoice.Subtotal, linked.Subtotal, 0.001)

	entries := observed.FilterMessage("skipping linked request with unknown urgency").All()
	require.Len(t, entries, 1)
	assert.Equal(t, bad.ID.String(), entries[0].ContextMap()["request_id"])
}

func TestLinkRequestRejectsForeignTicket(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)
	other := seedCustomer(t, db)

	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 3)
	foreign := seedRequest(t, db, other.ID, day(2025, 6, 10), "HIGH", 3)

	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, junePeriod(t))
	require.NoError(t, err)

	_, err = svc.LinkRequest(context.Background(), invoice.ID, foreign.ID)
	assert.ErrorIs(t, err, billing.ErrUnknownReference)

	_, err = svc.UnlinkRequest(context.Background(), invoice.ID, foreign.ID)
	assert.ErrorIs(t, err, billing.ErrUnknownReference)
}

func TestLinkRequestSpanningMonths(t *testing.T) {
	db := setupTestDB(t)
	svc := NewInvoiceService(db, nil, NewBillingService(db, nil))
	customer := seedCustomer(t, db)

	seedRequest(t, db, customer.ID, day(2025, 6, 10), "HIGH", 2)

	period, err := billing.NewPeriod(day(2025, 6, 1), day(2025, 7, 31))
	require.NoError(t, err)
	invoice, err := svc.Generate(context.Background(), uuid.New(), customer.ID, period)
	require.NoError(t, err)

	// June's ticket is fully covered by June's allowance.
	assert.InDelta(t, 0.0, invoice.Subtotal, 0.001)

	// A July ticket gets July's own allowance, not June's leftovers.
	julyTicket := seedRequest(t, db, customer.ID, day(2025, 7, 10), "HIGH", 3)
	linked, err := svc.LinkRequest(context.Background(), invoice.ID, julyTicket.ID)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, linked.Subtotal, 0.001)
}
