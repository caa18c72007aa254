// controllers/invoice.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"peakone-billing-backend/billing"
	"peakone-billing-backend/config"
	"peakone-billing-backend/models"
	"peakone-billing-backend/services"
	"peakone-billing-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceController exposes the invoice lifecycle over HTTP.
type InvoiceController struct {
	Invoices *services.InvoiceService
}

type GenerateInvoiceInput struct {
	CustomerID  uuid.UUID `json:"customerId" binding:"required"`
	PeriodStart time.Time `json:"periodStart" binding:"required"`
	PeriodEnd   time.Time `json:"periodEnd" binding:"required"`
}

type UpdateDraftInvoiceInput struct {
	PeriodStart *time.Time `json:"periodStart"`
	PeriodEnd   *time.Time `json:"periodEnd"`
	DueDate     *time.Time `json:"dueDate"`
	Notes       *string    `json:"notes"`
}

type RecordPaymentInput struct {
	Amount float64    `json:"amount" binding:"required"`
	Date   *time.Time `json:"date"`
}

func (ic *InvoiceController) Generate(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input GenerateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	period, err := billing.NewPeriod(input.PeriodStart, input.PeriodEnd)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	invoice, err := ic.Invoices.Generate(c.Request.Context(),
		uuid.Must(uuid.Parse(userID.(string))), input.CustomerID, period)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

func (ic *InvoiceController) List(c *gin.Context) {
	var customerID *uuid.UUID
	if customer := c.Query("customerId"); customer != "" {
		parsed, err := uuid.Parse(customer)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
			return
		}
		customerID = &parsed
	}

	invoices, err := ic.Invoices.List(c.Request.Context(), customerID, c.Query("status"))
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoices)
}

func (ic *InvoiceController) Get(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	invoice, err := ic.Invoices.Get(c.Request.Context(), invoiceUUID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (ic *InvoiceController) UpdateDraft(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var input UpdateDraftInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	invoice, err := ic.Invoices.UpdateDraft(c.Request.Context(), invoiceUUID, services.UpdateDraftInput{
		PeriodStart: input.PeriodStart,
		PeriodEnd:   input.PeriodEnd,
		DueDate:     input.DueDate,
		Notes:       input.Notes,
	})
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (ic *InvoiceController) Delete(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	if err := ic.Invoices.DeleteDraft(c.Request.Context(), invoiceUUID); err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}

func (ic *InvoiceController) Send(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	invoice, err := ic.Invoices.Send(c.Request.Context(), invoiceUUID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (ic *InvoiceController) Pay(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	var input RecordPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	date := time.Now()
	if input.Date != nil {
		date = *input.Date
	}

	invoice, err := ic.Invoices.Pay(c.Request.Context(), invoiceUUID, input.Amount, date)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (ic *InvoiceController) Cancel(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	invoice, err := ic.Invoices.Cancel(c.Request.Context(), invoiceUUID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (ic *InvoiceController) LinkRequest(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}
	requestUUID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	invoice, err := ic.Invoices.LinkRequest(c.Request.Context(), invoiceUUID, requestUUID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (ic *InvoiceController) UnlinkRequest(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}
	requestUUID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	invoice, err := ic.Invoices.UnlinkRequest(c.Request.Context(), invoiceUUID, requestUUID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// Export writes the invoice in the requested format: json (default), csv,
// accounting, or hosting.
func (ic *InvoiceController) Export(c *gin.Context) {
	invoiceUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoice ID format")
		return
	}

	invoice, err := ic.Invoices.Get(c.Request.Context(), invoiceUUID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	var customer models.Customer
	if err := config.DB.First(&customer, "id = ?", invoice.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Customer not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		doc, err := services.BuildInvoiceDocument(invoice, customer)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to build invoice document")
			return
		}
		c.JSON(http.StatusOK, doc)
	case "csv":
		setCSVHeaders(c, invoice.InvoiceNumber+".csv")
		if err := services.WriteInvoiceCSV(c.Writer, invoice, customer); err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to write CSV")
		}
	case "accounting":
		setCSVHeaders(c, invoice.InvoiceNumber+"-accounting.csv")
		if err := services.WriteAccountingCSV(c.Writer, invoice, customer); err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to write CSV")
		}
	case "hosting":
		setCSVHeaders(c, invoice.InvoiceNumber+"-hosting.csv")
		if err := services.WriteHostingDetailCSV(c.Writer, invoice); err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to write CSV")
		}
	default:
		utils.RespondWithError(c, http.StatusBadRequest, "Unknown export format")
	}
}

func setCSVHeaders(c *gin.Context, filename string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
}
