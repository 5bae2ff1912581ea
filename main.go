package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/aroussel/garage-api/config"
	"github.com/aroussel/garage-api/controllers"
	"github.com/aroussel/garage-api/middleware"
	"github.com/aroussel/garage-api/models"
	"github.com/aroussel/garage-api/services"
)

func main() {
	log.Info("Starting Garage API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.FaultGroup{},
		&models.Fault{},
		&models.SystemSettings{},
		&models.Case{},
		&models.StatusLog{},
		&models.Quote{},
		&models.QuoteLine{},
		&models.SlotTemplate{},
		&models.SlotException{},
		&models.AppointmentSlot{},
		&models.Appointment{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.Payment{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Info("Database migration completed successfully")

	// Ensure the settings singleton exists before the first request
	if _, err := models.GetSettings(db); err != nil {
		log.Fatalf("Failed to initialize system settings: %v", err)
	}

	if cfg.AWSS3Bucket != "" {
		if _, err := services.InitArchiveService(); err != nil {
			log.Fatalf("Failed to initialize document archive: %v", err)
		}
	} else {
		log.Warn("AWS_S3_BUCKET not set, document archiving is disabled")
	}

	go expiredQuoteSweeper()

	router := setupRouter(cfg)

	addr := ":" + cfg.Port
	log.Infof("Server is running on http://localhost%s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the HTTP surface. Profile creation only needs a
// valid token; everything else also requires a local user so the
// permission checks have a role to work with.
func setupRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)

		authed := v1.Group("")
		authed.Use(middleware.EnsureValidToken(cfg))

		// Profile creation runs before a local user exists
		authed.POST("/users", controllers.CreateUser)

		api := authed.Group("")
		api.Use(middleware.LoadCurrentUser())
		{
			api.GET("/users/me", controllers.GetCurrentUser)
			api.PUT("/users/me", controllers.UpdateCurrentUser)

			api.POST("/vehicles", controllers.CreateVehicle)
			api.GET("/vehicles", controllers.ListVehicles)
			api.PUT("/vehicles/:id", controllers.UpdateVehicle)
			api.DELETE("/vehicles/:id", controllers.DeleteVehicle)

			api.GET("/catalog", controllers.ListCatalog)

			api.POST("/cases", controllers.CreateCase)
			api.GET("/cases", controllers.ListCases)
			api.GET("/cases/:id", controllers.GetCase)
			api.PUT("/cases/:id/faults", controllers.SelectFaults)
			api.POST("/cases/:id/status", controllers.AdvanceStatus)

			api.POST("/cases/:id/quote", controllers.ComputeQuote)
			api.POST("/cases/:id/quote/issue", controllers.IssueQuote)
			api.GET("/cases/:id/quote", controllers.GetQuote)
			api.POST("/cases/:id/quote/accept", controllers.AcceptQuote)
			api.POST("/cases/:id/quote/refuse", controllers.RefuseQuote)

			api.GET("/slots", controllers.ListAvailableSlots)
			api.POST("/cases/:id/appointment", controllers.BookAppointment)
			api.GET("/cases/:id/appointment", controllers.GetAppointment)
			api.PUT("/appointments/:id", controllers.RescheduleAppointment)
			api.DELETE("/appointments/:id", controllers.CancelAppointment)

			api.POST("/cases/:id/invoice", controllers.GenerateInvoice)
			api.GET("/cases/:id/invoice", controllers.GetInvoice)
			api.POST("/invoices/:id/payments", controllers.RecordPayment)
			api.GET("/invoices/:id/document", controllers.GetInvoiceDocument)

			api.GET("/notifications", controllers.ListNotifications)
			api.GET("/notifications/unread-count", controllers.GetUnreadCount)
			api.PUT("/notifications/:id/read", controllers.MarkNotificationRead)

			admin := api.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.POST("/fault-groups", controllers.CreateFaultGroup)
				admin.PUT("/fault-groups/:id", controllers.UpdateFaultGroup)
				admin.POST("/faults", controllers.CreateFault)
				admin.PUT("/faults/:id", controllers.UpdateFault)

				admin.GET("/settings", controllers.GetSettings)
				admin.PUT("/settings", controllers.UpdateSettings)

				admin.GET("/slot-templates", controllers.ListSlotTemplates)
				admin.POST("/slot-templates", controllers.CreateSlotTemplate)
				admin.PUT("/slot-templates/:id", controllers.UpdateSlotTemplate)
				admin.POST("/slot-exceptions", controllers.CreateSlotException)
				admin.POST("/slots", controllers.CreateOneOffSlot)

				admin.GET("/users", controllers.ListUsers)
				admin.PUT("/users/:id/role", controllers.UpdateUserRole)
			}
		}
	}

	return router
}

// expiredQuoteSweeper periodically expires overdue quotes so cases do
// not depend on someone reading them to move on
func expiredQuoteSweeper() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		services.SweepExpiredQuotes()
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Garage API is running",
	})
}
