// controllers/dashboard.go
package controllers

import (
	"net/http"
	"time"

	"peakone-billing-backend/config"
	"peakone-billing-backend/models"
	"peakone-billing-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats returns the headline numbers for the dashboard landing
// page: invoiced revenue this month, outstanding balance, overdue count, and
// the most recent invoices.
func GetDashboardStats(c *gin.Context) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var monthRevenue float64
	if err := config.DB.Model(&models.Invoice{}).
		Where("invoice_date >= ? AND status NOT IN ?", monthStart,
			[]string{models.InvoiceStatusDraft, models.InvoiceStatusCancelled}).
		Select("COALESCE(SUM(total), 0)").Scan(&monthRevenue).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute month revenue")
		return
	}

	var outstanding float64
	if err := config.DB.Model(&models.Invoice{}).
		Where("status IN ?", []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}).
		Select("COALESCE(SUM(balance_due), 0)").Scan(&outstanding).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute outstanding balance")
		return
	}

	var overdueCount int64
	if err := config.DB.Model(&models.Invoice{}).
		Where("status = ?", models.InvoiceStatusOverdue).
		Count(&overdueCount).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count overdue invoices")
		return
	}

	var activeCustomers int64
	if err := config.DB.Model(&models.Customer{}).
		Where("is_active = ?", true).
		Count(&activeCustomers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count customers")
		return
	}

	var recentInvoices []models.Invoice
	if err := config.DB.Order("invoice_date DESC").Limit(10).Find(&recentInvoices).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load recent invoices")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"monthRevenue":       monthRevenue,
		"outstandingBalance": outstanding,
		"overdueCount":       overdueCount,
		"activeCustomers":    activeCustomers,
		"recentInvoices":     recentInvoices,
	})
}
