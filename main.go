package main

import (
	"log"
	"os"

	"peakone-billing-backend/config"
	"peakone-billing-backend/models"
	"peakone-billing-backend/routes"
	"peakone-billing-backend/services"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger := config.InitLogger()
	defer logger.Sync()

	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.ActivityRequest{},
		&models.Project{},
		&models.HostingProperty{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.NotificationLog{},
	)

	billingSvc := services.NewBillingService(config.DB, logger)
	invoiceSvc := services.NewInvoiceService(config.DB, logger, billingSvc)
	notifierSvc := services.NewNotifierService(config.DB, logger, invoiceSvc)
	notifierSvc.StartScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := routes.SetupRouter(logger, billingSvc, invoiceSvc)
	logger.Info("server starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
