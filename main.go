package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rental-backend/config"
	"rental-backend/controllers"
	"rental-backend/routes"
	"rental-backend/services"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env not found or couldn't load it; continuing with environment variables")
	}

	cfg := config.Load()

	// Required API key (fatal if missing — the intake pipeline is useless without OCR)
	if cfg.OCRAPIKey == "" {
		log.Fatal("❌ ERROR: AIGEN_API_KEY environment variable is not set. Cannot initialize passport OCR.")
	}
	log.Println("✅ AIGEN_API_KEY detected.")

	if cfg.CronSecret == "" {
		log.Println("⚠️  TM30_CRON_SECRET not set: the daily scheduler endpoint will refuse all calls.")
	}

	// Connect database (config.ConnectDatabase sets config.DB)
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("❌ Database connect failed: %v", err)
	}
	db := config.DB
	if db == nil {
		log.Fatal("❌ config.DB is nil after ConnectDatabase()")
	}
	log.Println("✅ Database connection established and migrations applied.")

	// External adapters
	ocr := services.NewAigenOCR(cfg.OCREndpoint, cfg.OCRAPIKey, cfg.OCRTimeout)
	store := services.NewPassportImageStore(cfg.UploadDir, cfg.BaseURL)

	var executor services.AutomationExecutor
	if cfg.ExecutorWebhookURL != "" {
		executor = services.NewWebhookExecutor(cfg.ExecutorWebhookURL, cfg.ExecutorToken, cfg.ExecutorTimeout)
		log.Println("✅ TM30 automation executor configured (webhook mode).")
	} else {
		executor = services.ManualExecutor{}
		log.Println("⚠️  TM30_WEBHOOK_URL not set: dispatches fall back to manual mode.")
	}

	// Services
	aggregator := services.NewAggregator(db)
	guestService := services.NewGuestService(db, aggregator)
	passportService := services.NewPassportService(db, ocr, store, aggregator)
	bookingService := services.NewBookingService(db)
	dispatchService := services.NewDispatchService(db, executor)
	schedulerService := services.NewSchedulerService(db, dispatchService)

	// Controllers
	authController := controllers.NewAuthController(db, cfg.JWTSecret)
	propertyController := controllers.NewPropertyController(db)
	bookingController := controllers.NewBookingController(bookingService)
	guestController := controllers.NewGuestController(db, passportService, guestService)
	tm30Controller := controllers.NewTM30Controller(db, dispatchService, schedulerService, bookingService)

	router := routes.SetupRouter(cfg, authController, propertyController, bookingController, guestController, tm30Controller)

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
		// useful timeouts
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe(): %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with timeout
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("⚠️  Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
