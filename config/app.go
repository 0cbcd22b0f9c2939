package config

import (
	"os"
	"strings"
	"time"
)

// App carries everything the services need, loaded once at startup and passed
// into each component at construction. Nothing reads ambient env mid-request.
type App struct {
	Port string

	// AIGEN passport OCR
	OCREndpoint string
	OCRAPIKey   string
	OCRTimeout  time.Duration

	// Automation executor (remote TM30 filing workflow). Empty WebhookURL
	// means no executor is configured and dispatch falls back to manual mode.
	ExecutorWebhookURL string
	ExecutorToken      string
	ExecutorTimeout    time.Duration

	// Secrets
	JWTSecret   string
	CronSecret  string // bearer secret for the daily scheduler trigger
	InternalKey string // pre-shared key for machine-to-machine callers

	// Blob storage for passport images, served under /uploads
	UploadDir string
	BaseURL   string
}

func envOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// Load reads the App config from environment variables.
func Load() App {
	return App{
		Port: envOrDefault("PORT", "8080"),

		OCREndpoint: envOrDefault("AIGEN_ENDPOINT_PASSPORT", "https://api.aigen.online/aiscript/passport-ocr/v2"),
		OCRAPIKey:   strings.TrimSpace(os.Getenv("AIGEN_API_KEY")),
		OCRTimeout:  30 * time.Second,

		ExecutorWebhookURL: strings.TrimSpace(os.Getenv("TM30_WEBHOOK_URL")),
		ExecutorToken:      strings.TrimSpace(os.Getenv("TM30_WEBHOOK_TOKEN")),
		ExecutorTimeout:    60 * time.Second,

		JWTSecret:   envOrDefault("JWT_SECRET", "dev-secret-change-me"),
		CronSecret:  strings.TrimSpace(os.Getenv("TM30_CRON_SECRET")),
		InternalKey: strings.TrimSpace(os.Getenv("INTERNAL_API_KEY")),

		UploadDir: envOrDefault("UPLOAD_DIR", "uploads"),
		BaseURL:   envOrDefault("BASE_URL", "http://localhost:8080"),
	}
}
