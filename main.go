// @title           DocFlow API
// @version         1.0
// @description     Document management backend. RFQs, technical recommendations and work orders with per-year numbering, vendor quotes and workflow stages.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	_ "backend/docs"
	"backend/handlers"
	"backend/services"
	"backend/storage"
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, extra)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	return corsConfig
}

var cronRunning int32

func safeGo(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	fn func(context.Context) error,
	cronLogger *log.Logger,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				if cronLogger != nil {
					cronLogger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				}
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("%s failed: %v", name, err)
			if cronLogger != nil {
				cronLogger.Printf("%s failed: %v", name, err)
			}
		} else {
			log.Printf("%s completed successfully", name)
		}
	}()
}

// expireVendorLinks marks vendor links whose validity window has passed.
func expireVendorLinks(db *sql.DB) error {
	_, err := db.Exec(`
		UPDATE document_vendors
		SET status = 'expired'
		WHERE valid_until IS NOT NULL
		  AND valid_until < NOW()
		  AND status NOT IN ('expired', 'declined')
	`)
	return err
}

func main() {
	db := storage.InitDB()
	gormDB := storage.InitGormDB()

	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	documentService := services.NewDocumentService(storage.NewDocumentStore(db))
	workflowService := services.NewWorkflowService(gormDB)
	emailService := services.NewEmailService()

	// FCM is optional. Without credentials push notifications are disabled.
	credentialsPath := os.Getenv("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "firebase-credentials.json"
	}
	fcmService, err := services.NewFCMService(credentialsPath, db)
	if err != nil {
		log.Printf("Warning: Failed to initialize FCM service: %v. Push notifications will be disabled.", err)
		fcmService = nil
	} else {
		log.Println("FCM service initialized successfully")
	}

	// Daily maintenance at 00:30
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)

	cronLogFile, err := os.OpenFile("cron_errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open cron error log file: %v", err)
	}
	cronLogger := log.New(cronLogFile, "CRON_ERROR: ", log.LstdFlags)

	_, err = c.AddFunc("30 0 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		log.Println("Starting daily maintenance cron job")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		var wg sync.WaitGroup

		safeGo(ctx, &wg, "CleanupExpiredSessions", func(ctx context.Context) error {
			return storage.CleanupExpiredSessions(db)
		}, cronLogger)

		safeGo(ctx, &wg, "ExpireVendorLinks", func(ctx context.Context) error {
			return expireVendorLinks(db)
		}, cronLogger)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All cron jobs finished")
		case <-ctx.Done():
			log.Println("Cron timeout reached, jobs cancelled")
			if cronLogger != nil {
				cronLogger.Println("Cron timeout reached, jobs cancelled")
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily maintenance cron job: %v", err)
	}

	c.Start()

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(CORSConfig()))

	// ==================== 1. AUTH & LOGIN ====================
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh-token", handlers.RefreshTokenHandler(db))
	r.POST("/api/validate-session", handlers.ValidateSession(db))
	r.DELETE("/api/session/:user_id", handlers.DeleteSessionHandler(db))

	// ==================== 2. DOCUMENTS ====================
	r.POST("/api/documents", handlers.CreateDocumentHandler(documentService, workflowService, gormDB, db))
	r.GET("/api/documents", handlers.ListDocumentsHandler(documentService))
	r.GET("/api/documents/:id", handlers.GetDocumentHandler(documentService))
	r.PUT("/api/documents/:id", handlers.UpdateDocumentHandler(documentService, gormDB, db))
	r.POST("/api/documents/:id/quotes", handlers.UpsertQuoteHandler(documentService, gormDB, db))
	r.POST("/api/documents/:id/vendors", handlers.UpsertVendorLinkHandler(documentService, gormDB, db))
	r.POST("/api/documents/:id/stage", handlers.MoveDocumentStageHandler(documentService, workflowService, fcmService, gormDB, db))
	r.GET("/api/documents/:id/stage-history", handlers.DocumentStageHistoryHandler(workflowService))
	r.POST("/api/documents/:id/send-invitations", handlers.SendRFQInvitationsHandler(documentService, emailService, gormDB, db))

	// ==================== 3. DOCUMENT EXPORTS ====================
	r.GET("/api/documents/:id/pdf", handlers.GenerateDocumentPDF(documentService))
	r.GET("/api/documents/:id/qr", handlers.GenerateDocumentQRCode(documentService))
	r.GET("/api/documents/:id/export_csv", handlers.ExportDocumentItemsCSV(documentService))
	r.GET("/api/documents/:id/export_quotes", handlers.ExportQuoteComparisonExcel(documentService))

	// ==================== 4. VENDORS ====================
	r.POST("/api/vendors", handlers.CreateVendor(db))
	r.GET("/api/vendors", handlers.GetVendors(db))
	r.GET("/api/vendors/:id", handlers.GetVendorByID(db))
	r.PUT("/api/vendors/:id", handlers.UpdateVendor(db))

	// ==================== 5. PRODUCTS ====================
	r.GET("/api/products", handlers.GetProducts(db))
	r.POST("/api/products", handlers.CreateProduct(db))

	// ==================== 6. ACTIVITY LOGS ====================
	r.GET("/api/logs", handlers.GetActivityLogsHandler(gormDB))

	// ==================== 7. NOTIFICATIONS ====================
	r.POST("/api/fcm/register-token", handlers.RegisterFCMTokenHandler(db, fcmService))
	r.DELETE("/api/fcm/remove-token", handlers.RemoveFCMTokenHandler(db, fcmService))

	// ==================== 8. SWAGGER ====================
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil {
		log.Fatalf("Invalid PORT environment variable: %s. Must be a number.", port)
	}
	if portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT: %d. Must be between 0 and 65535.", portInt)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cronCtx := c.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(10 * time.Second):
		log.Println("Cron jobs did not finish in time")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
