package services

import (
	"fmt"
	"testing"
	"time"

	"peakone-billing-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.ActivityRequest{},
		&models.Project{},
		&models.HostingProperty{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.NotificationLog{},
	))
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func seedCustomer(t *testing.T, db *gorm.DB) models.Customer {
	t.Helper()
	customer := models.Customer{
		ID:               uuid.New(),
		CreatedByUserID:  uuid.New(),
		Name:             "Acme Dental",
		PaymentTermsDays: 30,
		IsActive:         true,
	}
	require.NoError(t, db.Create(&customer).Error)
	return customer
}

func seedRequest(t *testing.T, db *gorm.DB, customerID uuid.UUID, date time.Time, urgency string, hours float64) models.ActivityRequest {
	t.Helper()
	request := models.ActivityRequest{
		ID:             uuid.New(),
		CustomerID:     customerID,
		Date:           date,
		Title:          "support ticket",
		Category:       "Support",
		Urgency:        urgency,
		EstimatedHours: hours,
		Status:         models.RequestStatusActive,
	}
	require.NoError(t, db.Create(&request).Error)
	return request
}

func seedProject(t *testing.T, db *gorm.DB, customerID uuid.UUID, category string, completed time.Time, amount float64) models.Project {
	t.Helper()
	project := models.Project{
		ID:             uuid.New(),
		CustomerID:     customerID,
		Name:           "project",
		Category:       category,
		CompletionDate: completed,
		Amount:         amount,
		InvoiceStatus:  models.ProjectStatusReady,
	}
	require.NoError(t, db.Create(&project).Error)
	return project
}

func seedProperty(t *testing.T, db *gorm.DB, customerID uuid.UUID, start, end *time.Time, fee float64) models.HostingProperty {
	t.Helper()
	property := models.HostingProperty{
		ID:           uuid.New(),
		CustomerID:   customerID,
		Name:         "acme.com",
		HostingStart: start,
		HostingEnd:   end,
		MonthlyFee:   fee,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&property).Error)
	return property
}
