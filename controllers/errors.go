package controllers

import (
	"errors"
	"net/http"

	"peakone-billing-backend/billing"
	"peakone-billing-backend/utils"

	"github.com/gin-gonic/gin"
)

// respondBillingError maps billing domain errors onto HTTP statuses. All of
// them are recoverable at the caller and surfaced as a user-facing message.
func respondBillingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidPeriod):
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid billing period")
	case errors.Is(err, billing.ErrNothingToBill):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, "No billable records for this customer and period")
	case errors.Is(err, billing.ErrInvoiceLocked):
		utils.RespondWithError(c, http.StatusConflict, "Invoice is not editable in its current status")
	case errors.Is(err, billing.ErrUnknownReference):
		utils.RespondWithError(c, http.StatusNotFound, "Referenced record not found")
	case errors.Is(err, billing.ErrPaymentOverage):
		utils.RespondWithError(c, http.StatusBadRequest, "Payment exceeds outstanding balance")
	case errors.Is(err, billing.ErrInvalidPayment):
		utils.RespondWithError(c, http.StatusBadRequest, "Payment amount must be positive")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal error")
	}
}
