// services/billing_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"peakone-billing-backend/billing"
	"peakone-billing-backend/cache"
	"peakone-billing-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const summaryCacheTTL = 15 * time.Minute

// BillingService loads raw activity records and feeds them through the
// billing aggregator. Summaries are memoized per (customer, period) and
// invalidated whenever a record for that customer changes.
type BillingService struct {
	db      *gorm.DB
	log     *zap.Logger
	agg     billing.Aggregator
	summary *cache.TTLCache[string, billing.BillingSummary]
}

func NewBillingService(db *gorm.DB, log *zap.Logger) *BillingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BillingService{
		db:      db,
		log:     log.Named("billing.service"),
		agg:     billing.NewAggregator(billing.DefaultPolicy(), log),
		summary: cache.New[string, billing.BillingSummary](),
	}
}

// RangeSummary returns the billing summary for a customer over a period.
func (s *BillingService) RangeSummary(ctx context.Context, customerID uuid.UUID, period billing.Period) (billing.BillingSummary, error) {
	key := summaryKey(customerID, period)
	if cached, ok := s.summary.Get(key); ok {
		return cached, nil
	}

	requests, projects, properties, err := s.loadRecords(ctx, customerID, period)
	if err != nil {
		return billing.BillingSummary{}, err
	}

	result, err := s.agg.RangeSummary(period, requests, projects, properties)
	if err != nil {
		return billing.BillingSummary{}, err
	}

	s.summary.Set(key, result, summaryCacheTTL)
	return result, nil
}

// MonthSummary returns one calendar month's summary for a customer.
func (s *BillingService) MonthSummary(ctx context.Context, customerID uuid.UUID, month time.Time) (billing.MonthlyBillingSummary, error) {
	result, err := s.RangeSummary(ctx, customerID, billing.MonthPeriod(month))
	if err != nil {
		return billing.MonthlyBillingSummary{}, err
	}
	return result.Months[0], nil
}

// DaySummary returns a single day's slice, recomputed from the filtered
// record subset. Day slices are cheap and not cached.
func (s *BillingService) DaySummary(ctx context.Context, customerID uuid.UUID, day time.Time) (billing.MonthlyBillingSummary, error) {
	period := billing.MonthPeriod(day)
	requests, projects, properties, err := s.loadRecords(ctx, customerID, period)
	if err != nil {
		return billing.MonthlyBillingSummary{}, err
	}
	return s.agg.DaySummary(day, requests, projects, properties), nil
}

// Invalidate drops every cached summary for a customer. Called by every
// controller mutation on requests, projects, or hosting properties.
func (s *BillingService) Invalidate(customerID uuid.UUID) {
	prefix := customerID.String() + "|"
	s.summary.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func (s *BillingService) loadRecords(ctx context.Context, customerID uuid.UUID, period billing.Period) (
	[]models.ActivityRequest, []models.Project, []models.HostingProperty, error,
) {
	var requests []models.ActivityRequest
	if err := s.db.WithContext(ctx).
		Where("customer_id = ? AND date >= ? AND date <= ?", customerID, period.Start, period.End).
		Find(&requests).Error; err != nil {
		return nil, nil, nil, err
	}

	var projects []models.Project
	if err := s.db.WithContext(ctx).
		Where("customer_id = ? AND completion_date >= ? AND completion_date <= ?", customerID, period.Start, period.End).
		Find(&projects).Error; err != nil {
		return nil, nil, nil, err
	}

	// Hosting properties span many billing months; load them all and let the
	// proration calculator resolve inactivity per month.
	var properties []models.HostingProperty
	if err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Find(&properties).Error; err != nil {
		return nil, nil, nil, err
	}

	return requests, projects, properties, nil
}

func summaryKey(customerID uuid.UUID, period billing.Period) string {
	return fmt.Sprintf("%s|%s|%s",
		customerID,
		period.Start.Format("2006-01-02"),
		period.End.Format("2006-01-02"))
}
