// controllers/hosting.go
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

// HostingController handles hosted-property CRUD.
type HostingController struct {
	Billing *services.BillingService
}

type CreateHostingPropertyInput struct {
	CustomerID   uuid.UUID  `json:"customerId" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	URL          string     `json:"url"`
	HostingStart *time.Time `json:"hostingStart"`
	HostingEnd   *time.Time `json:"hostingEnd"`
	MonthlyFee   float64    `json:"monthlyFee" binding:"min=0"`
}

type UpdateHostingPropertyInput struct {
	Name         *string    `json:"name"`
	URL          *string    `json:"url"`
	HostingStart *time.Time `json:"hostingStart"`
	HostingEnd   *time.Time `json:"hostingEnd"`
	MonthlyFee   *float64   `json:"monthlyFee" binding:"omitempty,min=0"`
	IsActive     *bool      `json:"isActive"`
}

func (hc *HostingController) Create(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input CreateHostingPropertyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.HostingStart != nil && input.HostingEnd != nil && input.HostingEnd.Before(*input.HostingStart) {
		utils.RespondWithError(c, http.StatusBadRequest, "Hosting end date cannot precede start date")
		return
	}

	property := models.HostingProperty{
		ID:              uuid.New(),
		CustomerID:      input.CustomerID,
		CreatedByUserID: uuid.Must(uuid.Parse(userID.(string))),
		Name:            input.Name,
		URL:             input.URL,
		HostingStart:    input.HostingStart,
		HostingEnd:      input.HostingEnd,
		MonthlyFee:      input.MonthlyFee,
		IsActive:        true,
	}

	if err := config.DB.Create(&property).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create hosting property")
		return
	}

	hc.Billing.Invalidate(property.CustomerID)
	c.JSON(http.StatusCreated, property)
}

func (hc *HostingController) List(c *gin.Context) {
	query := config.DB.Order("name ASC")

	if customer := c.Query("customerId"); customer != "" {
		customerUUID, err := uuid.Parse(customer)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
			return
		}
		query = query.Where("customer_id = ?", customerUUID)
	}

	var properties []models.HostingProperty
	if err := query.Find(&properties).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve hosting properties")
		return
	}

	c.JSON(http.StatusOK, properties)
}

func (hc *HostingController) Update(c *gin.Context) {
	propertyUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid property ID format")
		return
	}

	var input UpdateHostingPropertyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var property models.HostingProperty
	if err := config.DB.First(&property, "id = ?", propertyUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Hosting property not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		property.Name = *input.Name
	}
	if input.URL != nil {
		property.URL = *input.URL
	}
	if input.HostingStart != nil {
		property.HostingStart = input.HostingStart
	}
	if input.HostingEnd != nil {
		property.HostingEnd = input.HostingEnd
	}
	if input.MonthlyFee != nil {
		property.MonthlyFee = *input.MonthlyFee
	}
	if input.IsActive != nil {
		property.IsActive = *input.IsActive
	}

	if property.HostingStart != nil && property.HostingEnd != nil && property.HostingEnd.Before(*property.HostingStart) {
		utils.RespondWithError(c, http.StatusBadRequest, "Hosting end date cannot precede start date")
		return
	}

	if err := config.DB.Save(&property).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update hosting property")
		return
	}

	hc.Billing.Invalidate(property.CustomerID)
	c.JSON(http.StatusOK, property)
}

// EndHosting sets the hosting end date, which triggers final-month proration.
func (hc *HostingController) EndHosting(c *gin.Context) {
	propertyUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid property ID format")
		return
	}

	var input struct {
		HostingEnd time.Time `json:"hostingEnd" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var property models.HostingProperty
	if err := config.DB.First(&property, "id = ?", propertyUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Hosting property not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if property.HostingStart != nil && input.HostingEnd.Before(*property.HostingStart) {
		utils.RespondWithError(c, http.StatusBadRequest, "Hosting end date cannot precede start date")
		return
	}

	if err := config.DB.Model(&property).Updates(map[string]interface{}{
		"hosting_end": input.HostingEnd,
		"is_active":   false,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to end hosting")
		return
	}

	hc.Billing.Invalidate(property.CustomerID)
	c.JSON(http.StatusOK, gin.H{"message": "Hosting ended successfully"})
}
