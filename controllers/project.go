// controllers/project.go
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

// ProjectController handles fixed-price project CRUD.
type ProjectController struct {
	Billing *services.BillingService
}

type CreateProjectInput struct {
	CustomerID     uuid.UUID `json:"customerId" binding:"required"`
	Name           string    `json:"name" binding:"required"`
	Category       string    `json:"category" binding:"required"`
	CompletionDate time.Time `json:"completionDate" binding:"required"`
	Amount         float64   `json:"amount" binding:"min=0"`
}

type UpdateProjectInput struct {
	Name           *string    `json:"name"`
	Category       *string    `json:"category"`
	CompletionDate *time.Time `json:"completionDate"`
	Amount         *float64   `json:"amount" binding:"omitempty,min=0"`
	InvoiceStatus  *string    `json:"invoiceStatus" binding:"omitempty,oneof=NOT_READY READY INVOICED PAID"`
}

func (pc *ProjectController) Create(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var input CreateProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	project := models.Project{
		ID:              uuid.New(),
		CustomerID:      input.CustomerID,
		CreatedByUserID: uuid.Must(uuid.Parse(userID.(string))),
		Name:            input.Name,
		Category:        input.Category,
		CompletionDate:  input.CompletionDate,
		Amount:          input.Amount,
		InvoiceStatus:   models.ProjectStatusNotReady,
	}

	if err := config.DB.Create(&project).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create project")
		return
	}

	pc.Billing.Invalidate(project.CustomerID)
	c.JSON(http.StatusCreated, project)
}

func (pc *ProjectController) List(c *gin.Context) {
	query := config.DB.Order("completion_date DESC")

	if customer := c.Query("customerId"); customer != "" {
		customerUUID, err := uuid.Parse(customer)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid customer ID format")
			return
		}
		query = query.Where("customer_id = ?", customerUUID)
	}
	if status := c.Query("invoiceStatus"); status != "" {
		query = query.Where("invoice_status = ?", status)
	}
	if from := c.Query("from"); from != "" {
		date, err := utils.ParseDate(from)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid from date")
			return
		}
		query = query.Where("completion_date >= ?", date)
	}
	if to := c.Query("to"); to != "" {
		date, err := utils.ParseDate(to)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid to date")
			return
		}
		query = query.Where("completion_date <= ?", date)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve projects")
		return
	}

	c.JSON(http.StatusOK, projects)
}

func (pc *ProjectController) Update(c *gin.Context) {
	projectUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid project ID format")
		return
	}

	var input UpdateProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var project models.Project
	if err := config.DB.First(&project, "id = ?", projectUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Project not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		project.Name = *input.Name
	}
	if input.Category != nil {
		project.Category = *input.Category
	}
	if input.CompletionDate != nil {
		project.CompletionDate = *input.CompletionDate
	}
	if input.Amount != nil {
		project.Amount = *input.Amount
	}
	if input.InvoiceStatus != nil {
		project.InvoiceStatus = *input.InvoiceStatus
	}

	if err := config.DB.Save(&project).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update project")
		return
	}

	pc.Billing.Invalidate(project.CustomerID)
	c.JSON(http.StatusOK, project)
}

func (pc *ProjectController) Delete(c *gin.Context) {
	projectUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid project ID format")
		return
	}

	var project models.Project
	if err := config.DB.First(&project, "id = ?", projectUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Project not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := config.DB.Delete(&project).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete project")
		return
	}

	pc.Billing.Invalidate(project.CustomerID)
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
