// services/invoice_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"peakone-billing-backend/billing"
	"peakone-billing-backend/models"
	"peakone-billing-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Balances are compared at sub-cent precision to absorb float noise.
const centEpsilon = 0.005

// InvoiceService owns the invoice lifecycle: generation from aggregated
// billing data, draft edits, request linking, status transitions, and
// payment recording.
type InvoiceService struct {
	db      *gorm.DB
	log     *zap.Logger
	billing *BillingService
	policy  billing.Policy
	taxRate float64
}

func NewInvoiceService(db *gorm.DB, log *zap.Logger, billingSvc *BillingService) *InvoiceService {
	if log == nil {
		log = zap.NewNop()
	}
	taxRate := 0.0
	if env := os.Getenv("TAX_RATE"); env != "" {
		if v, err := strconv.ParseFloat(env, 64); err == nil {
			taxRate = v
		}
	}
	return &InvoiceService{
		db:      db,
		log:     log.Named("invoice.service"),
		billing: billingSvc,
		policy:  billing.DefaultPolicy(),
		taxRate: taxRate,
	}
}

// Generate builds a draft invoice for a customer over a period. The hosting
// charge list is snapshotted at this moment so later property edits never
// change the generated invoice.
func (s *InvoiceService) Generate(ctx context.Context, userID, customerID uuid.UUID, period billing.Period) (models.Invoice, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Invoice{}, billing.ErrUnknownReference
		}
		return models.Invoice{}, err
	}

	summary, err := s.billing.RangeSummary(ctx, customerID, period)
	if err != nil {
		return models.Invoice{}, err
	}

	items, snapshot := buildInvoiceItems(summary)
	if len(items) == 0 {
		return models.Invoice{}, billing.ErrNothingToBill
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return models.Invoice{}, err
	}

	invoiceDate := billing.DateOf(time.Now())
	invoice := models.Invoice{
		ID:                    uuid.New(),
		CreatedByUserID:       userID,
		CustomerID:            customerID,
		PeriodStart:           period.Start,
		PeriodEnd:             period.End,
		InvoiceDate:           invoiceDate,
		DueDate:               invoiceDate.AddDate(0, 0, customer.PaymentTermsDays),
		Status:                models.InvoiceStatusDraft,
		TaxRate:               s.taxRate,
		HostingDetailSnapshot: snapshotJSON,
		Items:                 items,
	}
	invoice.InvoiceNumber = "INV-" + invoiceDate.Format("20060102") + "-" + utils.GenerateRandomString(6)
	s.recomputeTotals(&invoice)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		return tx.Model(&models.Customer{}).Where("id = ?", customerID).
			Updates(map[string]interface{}{
				"total_billed":  gorm.Expr("total_billed + ?", invoice.Total),
				"last_invoiced": invoiceDate,
			}).Error
	})
	if err != nil {
		return models.Invoice{}, err
	}

	s.log.Info("invoice generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Float64("total", invoice.Total))
	return invoice, nil
}

// Get loads an invoice with its items.
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Invoice{}, billing.ErrUnknownReference
	}
	return invoice, err
}

// List returns invoices, optionally filtered by customer and status.
func (s *InvoiceService) List(ctx context.Context, customerID *uuid.UUID, status string) ([]models.Invoice, error) {
	query := s.db.WithContext(ctx).Preload("Items").Order("invoice_date DESC")
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var invoices []models.Invoice
	err := query.Find(&invoices).Error
	return invoices, err
}

// UpdateDraftInput carries the editable fields of a draft invoice.
type UpdateDraftInput struct {
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	DueDate     *time.Time
	Notes       *string
}

// UpdateDraft edits a draft invoice. Changing the period regenerates the
// line items and the hosting snapshot from current billing data.
func (s *InvoiceService) UpdateDraft(ctx context.Context, id uuid.UUID, input UpdateDraftInput) (models.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if !invoice.Editable() {
		return models.Invoice{}, billing.ErrInvoiceLocked
	}

	if input.Notes != nil {
		invoice.Notes = *input.Notes
	}
	if input.DueDate != nil {
		invoice.DueDate = billing.DateOf(*input.DueDate)
	}

	periodChanged := input.PeriodStart != nil || input.PeriodEnd != nil
	if periodChanged {
		start, end := invoice.PeriodStart, invoice.PeriodEnd
		if input.PeriodStart != nil {
			start = *input.PeriodStart
		}
		if input.PeriodEnd != nil {
			end = *input.PeriodEnd
		}
		period, err := billing.NewPeriod(start, end)
		if err != nil {
			return models.Invoice{}, err
		}

		summary, err := s.billing.RangeSummary(ctx, invoice.CustomerID, period)
		if err != nil {
			return models.Invoice{}, err
		}
		items, snapshot := buildInvoiceItems(summary)
		if len(items) == 0 {
			return models.Invoice{}, billing.ErrNothingToBill
		}
		snapshotJSON, err := json.Marshal(snapshot)
		if err != nil {
			return models.Invoice{}, err
		}

		invoice.PeriodStart = period.Start
		invoice.PeriodEnd = period.End
		invoice.HostingDetailSnapshot = snapshotJSON
		invoice.Items = items
		s.recomputeTotals(&invoice)

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			for i := range invoice.Items {
				invoice.Items[i].InvoiceID = invoice.ID
			}
			return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&invoice).Error
		})
		if err != nil {
			return models.Invoice{}, err
		}
		return s.Get(ctx, id)
	}

	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"notes":    invoice.Notes,
			"due_date": invoice.DueDate,
		}).Error; err != nil {
		return models.Invoice{}, err
	}
	return s.Get(ctx, id)
}

// LinkRequest attaches an activity request to a draft invoice's support
// lines and re-prices the support stream.
func (s *InvoiceService) LinkRequest(ctx context.Context, invoiceID, requestID uuid.UUID) (models.Invoice, error) {
	return s.relinkRequests(ctx, invoiceID, requestID, true)
}

// UnlinkRequest detaches an activity request and re-prices the support
// stream so the invoice stays internally consistent.
func (s *InvoiceService) UnlinkRequest(ctx context.Context, invoiceID, requestID uuid.UUID) (models.Invoice, error) {
	return s.relinkRequests(ctx, invoiceID, requestID, false)
}

func (s *InvoiceService) relinkRequests(ctx context.Context, invoiceID, requestID uuid.UUID, link bool) (models.Invoice, error) {
	invoice, err := s.Get(ctx, invoiceID)
	if err != nil {
		return models.Invoice{}, err
	}
	if !invoice.Editable() {
		return models.Invoice{}, billing.ErrInvoiceLocked
	}

	linked := linkedRequestIDs(invoice.Items)
	if link {
		var request models.ActivityRequest
		if err := s.db.WithContext(ctx).
			First(&request, "id = ? AND customer_id = ?", requestID, invoice.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Invoice{}, billing.ErrUnknownReference
			}
			return models.Invoice{}, err
		}
		if _, ok := linked[requestID]; ok {
			return invoice, nil
		}
		linked[requestID] = struct{}{}
	} else {
		if _, ok := linked[requestID]; !ok {
			return models.Invoice{}, billing.ErrUnknownReference
		}
		delete(linked, requestID)
	}

	ids := make([]uuid.UUID, 0, len(linked))
	for id := range linked {
		ids = append(ids, id)
	}

	var requests []models.ActivityRequest
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).
			Where("id IN ? AND customer_id = ?", ids, invoice.CustomerID).
			Find(&requests).Error; err != nil {
			return models.Invoice{}, err
		}
	}

	supportItems := buildSupportItems(s.priceByMonth(requests), 0)

	kept := make([]models.InvoiceItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		if item.ItemType != models.ItemTypeSupport {
			kept = append(kept, item)
		}
	}
	invoice.Items = renumberItems(append(supportItems, kept...))
	s.recomputeTotals(&invoice)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		for i := range invoice.Items {
			invoice.Items[i].ID = uuid.Nil
			invoice.Items[i].InvoiceID = invoice.ID
		}
		if len(invoice.Items) > 0 {
			if err := tx.Create(&invoice.Items).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Updates(map[string]interface{}{
				"subtotal":    invoice.Subtotal,
				"tax":         invoice.Tax,
				"total":       invoice.Total,
				"balance_due": invoice.BalanceDue,
			}).Error
	})
	if err != nil {
		return models.Invoice{}, err
	}
	return s.Get(ctx, invoiceID)
}

// priceByMonth re-runs support pricing with the monthly free-hours allowance
// applied per calendar month. A linked request with an unknown urgency is
// skipped and logged rather than dropped silently.
func (s *InvoiceService) priceByMonth(requests []models.ActivityRequest) []billing.TicketCharge {
	byMonth := make(map[string][]models.ActivityRequest)
	for _, req := range requests {
		if billing.Billable(req) {
			if _, ok := s.policy.Support.Rates[req.Urgency]; !ok {
				s.log.Warn("skipping linked request with unknown urgency",
					zap.String("request_id", req.ID.String()),
					zap.String("urgency", req.Urgency))
				continue
			}
		}
		key := billing.MonthKey(req.Date)
		byMonth[key] = append(byMonth[key], req)
	}
	keys := make([]string, 0, len(byMonth))
	for key := range byMonth {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var charges []billing.TicketCharge
	for _, key := range keys {
		monthCharges, _ := billing.PriceSupportTickets(byMonth[key], s.policy.Support)
		charges = append(charges, monthCharges...)
	}
	return charges
}

// Send locks a draft invoice. From here only payment recording, overdue
// marking, and cancellation are possible.
func (s *InvoiceService) Send(ctx context.Context, id uuid.UUID) (models.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if invoice.Status != models.InvoiceStatusDraft {
		return models.Invoice{}, billing.ErrInvoiceLocked
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, models.InvoiceStatusDraft).
		Updates(map[string]interface{}{"status": models.InvoiceStatusSent, "sent_at": now})
	if result.Error != nil {
		return models.Invoice{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Invoice{}, billing.ErrInvoiceLocked
	}
	return s.Get(ctx, id)
}

// Pay records a payment. Overpayment is rejected outright rather than
// credited forward. The invoice transitions to paid when the balance
// reaches zero.
func (s *InvoiceService) Pay(ctx context.Context, id uuid.UUID, amount float64, date time.Time) (models.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if invoice.Status != models.InvoiceStatusSent && invoice.Status != models.InvoiceStatusOverdue {
		return models.Invoice{}, billing.ErrInvoiceLocked
	}
	if amount <= 0 {
		return models.Invoice{}, billing.ErrInvalidPayment
	}
	if amount > invoice.BalanceDue+centEpsilon {
		return models.Invoice{}, billing.ErrPaymentOverage
	}

	invoice.AmountPaid = billing.Round2(invoice.AmountPaid + amount)
	invoice.BalanceDue = billing.Round2(invoice.Total - invoice.AmountPaid)

	updates := map[string]interface{}{
		"amount_paid": invoice.AmountPaid,
		"balance_due": invoice.BalanceDue,
	}
	if invoice.BalanceDue < centEpsilon {
		invoice.BalanceDue = 0
		updates["balance_due"] = 0.0
		updates["status"] = models.InvoiceStatusPaid
		updates["paid_at"] = date
	}

	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", id).Updates(updates).Error; err != nil {
		return models.Invoice{}, err
	}
	return s.Get(ctx, id)
}

// Cancel voids a sent or overdue invoice.
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID) (models.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if invoice.Status != models.InvoiceStatusSent && invoice.Status != models.InvoiceStatusOverdue {
		return models.Invoice{}, billing.ErrInvoiceLocked
	}
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", id).Update("status", models.InvoiceStatusCancelled).Error; err != nil {
		return models.Invoice{}, err
	}
	return s.Get(ctx, id)
}

// DeleteDraft removes a draft invoice and its items. Non-draft invoices are
// never deleted, only cancelled.
func (s *InvoiceService) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !invoice.Editable() {
		return billing.ErrInvoiceLocked
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, "id = ?", id).Error
	})
}

// MarkOverdue flips every sent invoice past its due date to overdue and
// returns them for notification.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	var due []models.Invoice
	if err := s.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", models.InvoiceStatusSent, billing.DateOf(now)).
		Find(&due).Error; err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(due))
	for _, inv := range due {
		ids = append(ids, inv.ID)
	}
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id IN ?", ids).Update("status", models.InvoiceStatusOverdue).Error; err != nil {
		return nil, err
	}
	for i := range due {
		due[i].Status = models.InvoiceStatusOverdue
	}
	return due, nil
}

func (s *InvoiceService) recomputeTotals(invoice *models.Invoice) {
	subtotal := 0.0
	for _, item := range invoice.Items {
		subtotal += item.Amount
	}
	invoice.Subtotal = billing.Round2(subtotal)
	invoice.Tax = billing.Round2(invoice.Subtotal * invoice.TaxRate)
	invoice.Total = billing.Round2(invoice.Subtotal + invoice.Tax)
	invoice.BalanceDue = billing.Round2(invoice.Total - invoice.AmountPaid)
}

// buildInvoiceItems turns an aggregated summary into ordered line items plus
// the hosting snapshot: support lines grouped per urgency tier, one line per
// project (credited projects kept at zero), and one hosting lump sum per
// month.
func buildInvoiceItems(summary billing.BillingSummary) ([]models.InvoiceItem, []billing.MonthHostingDetail) {
	var tickets []billing.TicketCharge
	var projects []billing.ProjectCharge
	var snapshot []billing.MonthHostingDetail

	for _, month := range summary.Months {
		tickets = append(tickets, month.Tickets...)
		projects = append(projects, month.Projects...)
		if len(month.HostingCharges) > 0 {
			snapshot = append(snapshot, billing.MonthHostingDetail{
				Month:   month.Month,
				Charges: month.HostingCharges,
			})
		}
	}

	items := buildSupportItems(tickets, 0)

	for _, proj := range projects {
		desc := proj.Name
		if proj.IsFreeCredit {
			desc = fmt.Sprintf("%s (free credit, list price $%.2f)", proj.Name, proj.OriginalAmount)
		}
		items = append(items, models.InvoiceItem{
			ItemType:    models.ItemTypeProject,
			Description: desc,
			Quantity:    1,
			UnitPrice:   proj.Amount,
			Amount:      proj.Amount,
		})
	}

	for _, detail := range snapshot {
		net := billing.NetMRR(detail.Charges)
		items = append(items, models.InvoiceItem{
			ItemType:    models.ItemTypeHosting,
			Description: fmt.Sprintf("Hosting services %s (%d sites)", detail.Month, len(detail.Charges)),
			Quantity:    1,
			UnitPrice:   net,
			Amount:      net,
		})
	}

	return renumberItems(items), snapshot
}

// buildSupportItems groups ticket charges by urgency tier, highest rate
// first. Quantity is the billable hours after free hours; the amount is the
// exact sum of per-ticket nets so stream totals reconcile to the cent.
func buildSupportItems(tickets []billing.TicketCharge, startOrder int) []models.InvoiceItem {
	type group struct {
		urgency   string
		rate      float64
		hours     float64
		freeHours float64
		net       float64
		requests  []string
		count     int
	}
	groups := make(map[string]*group)
	for _, t := range tickets {
		g, ok := groups[t.Urgency]
		if !ok {
			g = &group{urgency: t.Urgency, rate: t.Rate}
			groups[t.Urgency] = g
		}
		g.hours += t.Hours
		g.freeHours += t.FreeHoursApplied
		g.net += t.NetAmount
		g.requests = append(g.requests, t.RequestID.String())
		g.count++
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(a, b int) bool {
		return ordered[a].rate > ordered[b].rate
	})

	items := make([]models.InvoiceItem, 0, len(ordered))
	for i, g := range ordered {
		desc := fmt.Sprintf("Support - %s urgency (%d tickets, %.2f hrs)", g.urgency, g.count, g.hours)
		if g.freeHours > 0 {
			desc += fmt.Sprintf(", %.2f free hrs applied", g.freeHours)
		}
		requestsJSON, _ := json.Marshal(g.requests)
		items = append(items, models.InvoiceItem{
			ItemType:    models.ItemTypeSupport,
			Description: desc,
			Quantity:    billing.Round2(g.hours - g.freeHours),
			UnitPrice:   g.rate,
			Amount:      billing.Round2(g.net),
			SortOrder:   startOrder + i,
			RequestIDs:  requestsJSON,
		})
	}
	return items
}

func renumberItems(items []models.InvoiceItem) []models.InvoiceItem {
	for i := range items {
		items[i].SortOrder = i
	}
	return items
}

func linkedRequestIDs(items []models.InvoiceItem) map[uuid.UUID]struct{} {
	linked := make(map[uuid.UUID]struct{})
	for _, item := range items {
		if item.ItemType != models.ItemTypeSupport || len(item.RequestIDs) == 0 {
			continue
		}
		var ids []string
		if err := json.Unmarshal(item.RequestIDs, &ids); err != nil {
			continue
		}
		for _, raw := range ids {
			if id, err := uuid.Parse(raw); err == nil {
				linked[id] = struct{}{}
			}
		}
	}
	return linked
}
