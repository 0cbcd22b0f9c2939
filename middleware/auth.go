package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"rental-backend/models"
)

const (
	ctxAdminID     = "adminID"
	ctxAdminRole   = "adminRole"
	ctxPortalToken = "portalToken"
	ctxInternalOK  = "internalOK"
)

// AdminClaims is the JWT payload for admin sessions.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate resolves the caller's identity from the request without
// rejecting anything; authorization decisions happen per endpoint. Three
// identities can coexist on one request: an admin JWT (Authorization: Bearer),
// a booking-owner portal token (X-Portal-Token or ?token=), and the pre-shared
// internal key (X-Internal-Key).
func Authenticate(jwtSecret, internalKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			claims := &AdminClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err == nil && token.Valid {
				c.Set(ctxAdminID, claims.Subject)
				c.Set(ctxAdminRole, claims.Role)
			}
		}

		if pt := strings.TrimSpace(c.GetHeader("X-Portal-Token")); pt != "" {
			c.Set(ctxPortalToken, pt)
		} else if pt := strings.TrimSpace(c.Query("token")); pt != "" {
			c.Set(ctxPortalToken, pt)
		}

		if internalKey != "" {
			got := strings.TrimSpace(c.GetHeader("X-Internal-Key"))
			if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(internalKey)) == 1 {
				c.Set(ctxInternalOK, true)
			}
		}

		c.Next()
	}
}

// IsAdmin reports whether the request carries a valid admin session.
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ctxAdminID) != ""
}

// IsInternal reports whether the request carries the pre-shared internal key.
func IsInternal(c *gin.Context) bool {
	return c.GetBool(ctxInternalOK)
}

// PortalToken returns the booking-owner token on the request, if any.
func PortalToken(c *gin.Context) string {
	return c.GetString(ctxPortalToken)
}

// RequireAdmin aborts unless the request carries a valid admin session.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": "admin session required",
			})
			return
		}
		c.Next()
	}
}

// RequireInternal aborts unless the pre-shared internal key matched.
func RequireInternal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsInternal(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": "internal key required",
			})
			return
		}
		c.Next()
	}
}

// CronAuth guards the scheduler trigger with a configured bearer secret. An
// unset secret must not silently disable the check, so it fails closed.
func CronAuth(cronSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cronSecret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false, "error": "scheduler secret not configured",
			})
			return
		}
		got := bearerToken(c)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(cronSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": "invalid scheduler secret",
			})
			return
		}
		c.Next()
	}
}

// CanAccessBooking authorizes booking-scoped reads/writes: booking owner,
// administrative role, or internal key — checked in that order.
func CanAccessBooking(c *gin.Context, db *gorm.DB, bookingID uint) bool {
	if pt := PortalToken(c); pt != "" {
		var count int64
		db.Model(&models.Booking{}).
			Joins("JOIN customers ON customers.id = bookings.customer_id").
			Where("bookings.id = ? AND customers.portal_token = ?", bookingID, pt).
			Count(&count)
		if count > 0 {
			return true
		}
	}
	if IsAdmin(c) {
		return true
	}
	return IsInternal(c)
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
