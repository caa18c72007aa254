// controllers/billing.go
package controllers

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"peakone-billing-backend/billing"
	"peakone-billing-backend/services"
	"peakone-billing-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BillingController serves aggregated billing summaries for the dashboard.
type BillingController struct {
	Billing *services.BillingService
}

// GetMonthSummary returns one calendar month's billing summary.
// GET /api/billing/:customerId/month/:month  (month as 2006-01)
// Pass format=csv for a spreadsheet export.
func (bc *BillingController) GetMonthSummary(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	month, err := billing.ParseMonth(c.Param("month"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid month, expected YYYY-MM")
		return
	}

	summary, err := bc.Billing.MonthSummary(c.Request.Context(), customerUUID, month)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		writeMonthSummaryCSV(c, summary)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetRangeSummary returns the summary over an arbitrary date range.
// GET /api/billing/:customerId/range?start=2025-01-01&end=2025-03-31
func (bc *BillingController) GetRangeSummary(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	start, err := utils.ParseDate(c.Query("start"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid start date")
		return
	}
	end, err := utils.ParseDate(c.Query("end"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid end date")
		return
	}

	period, err := billing.NewPeriod(start, end)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	summary, err := bc.Billing.RangeSummary(c.Request.Context(), customerUUID, period)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetDaySummary returns a single day's slice of its month.
// GET /api/billing/:customerId/day/:date  (date as 2006-01-02)
func (bc *BillingController) GetDaySummary(c *gin.Context) {
	customerUUID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
		return
	}

	day, err := utils.ParseDate(c.Param("date"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	summary, err := bc.Billing.DaySummary(c.Request.Context(), customerUUID, day)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func writeMonthSummaryCSV(c *gin.Context, summary billing.MonthlyBillingSummary) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=billing-%s.csv", summary.Month))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{"Stream", "Detail", "Gross", "Savings", "Net"})

	_ = writer.Write([]string{
		"Support",
		fmt.Sprintf("%d tickets, %.2f free hrs", len(summary.Tickets), summary.TicketsFreeHoursApplied),
		fmt.Sprintf("%.2f", summary.TicketsGrossRevenue),
		fmt.Sprintf("%.2f", summary.TicketsFreeHoursSavings),
		fmt.Sprintf("%.2f", summary.TicketsRevenue),
	})
	_ = writer.Write([]string{
		"Projects",
		fmt.Sprintf("%d projects", len(summary.Projects)),
		fmt.Sprintf("%.2f", summary.ProjectsGrossRevenue),
		fmt.Sprintf("%.2f", summary.ProjectsLandingPageSavings+summary.ProjectsMultiFormSavings+summary.ProjectsBasicFormSavings),
		fmt.Sprintf("%.2f", summary.ProjectsRevenue),
	})
	_ = writer.Write([]string{
		"Hosting",
		fmt.Sprintf("%d sites, %d/%d credits", len(summary.HostingCharges), summary.HostingCreditsApplied, summary.HostingCreditsAvailable),
		fmt.Sprintf("%.2f", summary.HostingGrossRevenue),
		fmt.Sprintf("%.2f", summary.HostingCreditSavings),
		fmt.Sprintf("%.2f", summary.HostingRevenue),
	})
	_ = writer.Write([]string{"Total", "", "", "", fmt.Sprintf("%.2f", summary.TotalRevenue)})
}
