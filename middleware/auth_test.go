package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "test-jwt-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func adminRouter(jwtSecret, internalKey string) *gin.Engine {
	r := gin.New()
	r.Use(Authenticate(jwtSecret, internalKey))
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": c.GetString("adminRole")})
	})
	r.GET("/internal", RequireInternal(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func signAdminToken(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	claims := AdminClaims{
		Role: "Manager",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestRequireAdminAcceptsValidJWT(t *testing.T) {
	r := adminRouter(testJWTSecret, "")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signAdminToken(t, testJWTSecret, jwt.SigningMethodHS256))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
}

func TestRequireAdminRejectsBadSignatureAndMissingToken(t *testing.T) {
	r := adminRouter(testJWTSecret, "")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signAdminToken(t, "wrong-secret", jwt.SigningMethodHS256))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}
}

func TestRequireInternalMatchesPreSharedKey(t *testing.T) {
	r := adminRouter(testJWTSecret, "internal-key")

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req.Header.Set("X-Internal-Key", "internal-key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/internal", nil)
	req.Header.Set("X-Internal-Key", "not-the-key")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, want 401", w.Code)
	}
}

func TestRequireInternalFailsClosedWhenKeyUnset(t *testing.T) {
	// With no key configured, nothing can authenticate as internal, even an
	// empty header.
	r := adminRouter(testJWTSecret, "")

	req := httptest.NewRequest(http.MethodGet, "/internal", nil)
	req.Header.Set("X-Internal-Key", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func cronRouter(secret string) *gin.Engine {
	r := gin.New()
	r.POST("/run", CronAuth(secret), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCronAuthFailsClosedWithoutSecret(t *testing.T) {
	r := cronRouter("")

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unset secret must disable the endpoint: status = %d, want 503", w.Code)
	}
}

func TestCronAuthChecksBearerSecret(t *testing.T) {
	r := cronRouter("cron-secret")

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestPortalTokenFromHeaderOrQuery(t *testing.T) {
	r := gin.New()
	r.Use(Authenticate(testJWTSecret, ""))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, PortalToken(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Portal-Token", "tok-header")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "tok-header" {
		t.Fatalf("header token not picked up: %q", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami?token=tok-query", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "tok-query" {
		t.Fatalf("query token not picked up: %q", w.Body.String())
	}
}
