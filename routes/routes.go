package routes

import (
	"os"
	"strings"

	"peakone-billing-backend/config"
	"peakone-billing-backend/controllers"
	"peakone-billing-backend/services"
	"peakone-billing-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(log *zap.Logger, billingSvc *services.BillingService, invoiceSvc *services.InvoiceService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Use(config.RequestLogger(log))

	requestController := controllers.RequestController{Billing: billingSvc}
	projectController := controllers.ProjectController{Billing: billingSvc}
	hostingController := controllers.HostingController{Billing: billingSvc}
	billingController := controllers.BillingController{Billing: billingSvc}
	invoiceController := controllers.InvoiceController{Invoices: invoiceSvc}

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Customer routes
		customers := api.Group("/customers")
		{
			customers.POST("", controllers.CreateCustomer)
			customers.GET("", controllers.GetCustomers)
			customers.GET("/:id", controllers.GetCustomer)
			customers.PUT("/:id", controllers.UpdateCustomer)
			customers.DELETE("/:id", controllers.DeleteCustomer)
		}

		// Support request routes
		requests := api.Group("/requests")
		{
			requests.POST("", requestController.Create)
			requests.GET("", requestController.List)
			requests.PUT("/:id", requestController.Update)
			requests.DELETE("/:id", requestController.Archive)
		}

		// Project routes
		projects := api.Group("/projects")
		{
			projects.POST("", projectController.Create)
			projects.GET("", projectController.List)
			projects.PUT("/:id", projectController.Update)
			projects.DELETE("/:id", projectController.Delete)
		}

		// Hosting property routes
		hosting := api.Group("/hosting")
		{
			hosting.POST("", hostingController.Create)
			hosting.GET("", hostingController.List)
			hosting.PUT("/:id", hostingController.Update)
			hosting.POST("/:id/end", hostingController.EndHosting)
		}

		// Billing summary routes
		billing := api.Group("/billing")
		{
			billing.GET("/:customerId/month/:month", billingController.GetMonthSummary)
			billing.GET("/:customerId/range", billingController.GetRangeSummary)
			billing.GET("/:customerId/day/:date", billingController.GetDaySummary)
		}

		// Invoice routes
		invoices := api.Group("/invoices")
		{
			invoices.POST("", invoiceController.Generate)
			invoices.GET("", invoiceController.List)
			invoices.GET("/:id", invoiceController.Get)
			invoices.PUT("/:id", invoiceController.UpdateDraft)
			invoices.DELETE("/:id", invoiceController.Delete)
			invoices.POST("/:id/send", invoiceController.Send)
			invoices.POST("/:id/pay", invoiceController.Pay)
			invoices.POST("/:id/cancel", invoiceController.Cancel)
			invoices.POST("/:id/requests/:requestId", invoiceController.LinkRequest)
			invoices.DELETE("/:id/requests/:requestId", invoiceController.UnlinkRequest)
			invoices.GET("/:id/export", invoiceController.Export)
		}

		// Dashboard routes
		api.GET("/dashboard", controllers.GetDashboardStats)
	}

	return r
}
