package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rental-backend/config"
	"rental-backend/controllers"
	"rental-backend/middleware"
)

func parseCorsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// SetupRouter wires controllers, auth and CORS into the gin engine.
func SetupRouter(
	cfg config.App,
	ac *controllers.AuthController,
	pc *controllers.PropertyController,
	bc *controllers.BookingController,
	gc *controllers.GuestController,
	tc *controllers.TM30Controller,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())
	r.Static("/uploads", "./"+cfg.UploadDir)

	origins := parseCorsOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Portal-Token", "X-Internal-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.Authenticate(cfg.JWTSecret, cfg.InternalKey))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", ac.Login)
		}

		properties := api.Group("/properties", middleware.RequireAdmin())
		{
			properties.GET("", pc.List)
			properties.POST("", pc.Create)
			properties.PUT("/:id/tm30-registration", pc.RegisterTM30)
		}

		bookings := api.Group("/bookings")
		{
			bookings.GET("", middleware.RequireAdmin(), bc.List)
			bookings.POST("", middleware.RequireAdmin(), bc.Create)
			bookings.GET("/:id", middleware.RequireAdmin(), bc.Get)
			bookings.POST("/:id/confirm", middleware.RequireAdmin(), bc.Confirm)

			// owner-or-admin, authorized per booking in the handlers
			bookings.GET("/:id/guests", gc.GetByBooking)
			bookings.GET("/:id/tm30", tc.Status)
		}

		guests := api.Group("/guests")
		{
			// owner, admin, or internal webhook key
			guests.POST("/:id/passport", gc.SubmitPassport)

			// owner or admin
			guests.PUT("/:id/tm30", gc.Correct)

			guests.POST("/:id/tm30/reset", middleware.RequireAdmin(), gc.Reset)
		}

		tm30Routes := api.Group("/tm30")
		{
			tm30Routes.POST("/dispatch", middleware.RequireAdmin(), tc.Dispatch)
			tm30Routes.POST("/run-daily", middleware.CronAuth(cfg.CronSecret), tc.RunDaily)
			tm30Routes.POST("/callback", middleware.RequireInternal(), tc.Callback)
		}
	}

	return r
}
