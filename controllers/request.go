// controllers/request.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"peakone-billing-backend/config"
	"peakone-billing-backend/models"
	"peakone-billing-backend/services"
	"peakone-billing-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestController handles support-ticket intake and corrections.
type RequestController struct {
	Billing *services.BillingService
}

type CreateRequestInput struct {
	CustomerID     uuid.UUID `json:"customerId" binding:"required"`
	Date           time.Time `json:"date" binding:"required"`
	TimeOfDay      string    `json:"timeOfDay"`
	Title          string    `json:"title" binding:"required"`
	Category       string    `json:"category"`
	Urgency        string    `json:"urgency" binding:"required,oneof=HIGH MEDIUM LOW PROMOTION"`
	EstimatedHours float64   `json:"estimatedHours" binding:"min=0"`
	Notes          string    `json:"notes"`
}

// UpdateRequestInput allows administrative correction of a billed ticket.
type UpdateRequestInput struct {
	Title          *string    `json:"title"`
	Category       *string    `json:"category"`
	Urgency        *string    `json:"urgency" binding:"omitempty,oneof=HIGH MEDIUM LOW PROMOTION"`
	EstimatedHours *float64   `json:"estimatedHours" binding:"omitempty,min=0"`
	Date           *time.Time `json:"date"`
	Notes          *string    `json:"notes"`
}

func (rc *RequestController) Create(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	category := input.Category
	if category == "" {
		category = "Support"
	}

	request := models.ActivityRequest{
		ID:              uuid.New(),
		CustomerID:      input.CustomerID,
		CreatedByUserID: uuid.Must(uuid.Parse(userID.(string))),
		Date:            input.Date,
		TimeOfDay:       input.TimeOfDay,
		Title:           input.Title,
		Category:        category,
		Urgency:         input.Urgency,
		EstimatedHours:  input.EstimatedHours,
		Status:          models.RequestStatusActive,
		Notes:           input.Notes,
	}

	if err := config.DB.Create(&request).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create request")
		return
	}

	rc.Billing.Invalidate(request.CustomerID)
	c.JSON(http.StatusCreated, request)
}

// List retrieves requests for a customer, optionally bounded by date range.
func (rc *RequestController) List(c *gin.Context) {
	query := config.DB.Order("date DESC")

	if customer := c.Query("customerId"); customer != "" {
		customerUUID, err := uuid.Parse(customer)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
			return
		}
		query = query.Where("customer_id = ?", customerUUID)
	}
	if from := c.Query("from"); from != "" {
		date, err := utils.ParseDate(from)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid from date")
			return
		}
		query = query.Where("date >= ?", date)
	}
	if to := c.Query("to"); to != "" {
		date, err := utils.ParseDate(to)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid to date")
			return
		}
		query = query.Where("date <= ?", date)
	}

	var requests []models.ActivityRequest
	if err := query.Find(&requests).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve requests")
		return
	}

	c.JSON(http.StatusOK, requests)
}

func (rc *RequestController) Update(c *gin.Context) {
	requestUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	var input UpdateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var request models.ActivityRequest
	if err := config.DB.First(&request, "id = ?", requestUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Request not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Title != nil {
		request.Title = *input.Title
	}
	if input.Category != nil {
		request.Category = *input.Category
	}
	if input.Urgency != nil {
		request.Urgency = *input.Urgency
	}
	if input.EstimatedHours != nil {
		request.EstimatedHours = *input.EstimatedHours
	}
	if input.Date != nil {
		request.Date = *input.Date
	}
	if input.Notes != nil {
		request.Notes = *input.Notes
	}

	if err := config.DB.Save(&request).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update request")
		return
	}

	rc.Billing.Invalidate(request.CustomerID)
	c.JSON(http.StatusOK, request)
}

// Archive soft-deletes a request. Archived requests stop billing but stay
// auditable.
func (rc *RequestController) Archive(c *gin.Context) {
	requestUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	var request models.ActivityRequest
	if err := config.DB.First(&request, "id = ?", requestUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Request not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := config.DB.Model(&request).Update("status", models.RequestStatusDeleted).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to archive request")
		return
	}

	rc.Billing.Invalidate(request.CustomerID)
	c.JSON(http.StatusOK, gin.H{"message": "Request archived successfully"})
}
