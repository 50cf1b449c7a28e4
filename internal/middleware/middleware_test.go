package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	jwt := NewJWTMiddleware(testSecret)
	whoami := func(c *gin.Context) {
		c.JSON(200, gin.H{"username": GetUsername(c), "role": GetRole(c)})
	}
	r.GET("/me", jwt.Handle(), whoami)
	r.GET("/admin", jwt.Handle(), RequireRole(models.RoleAdmin), whoami)
	r.GET("/stream", jwt.HandleStream(), whoami)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp utils.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

func token(t *testing.T, secret string, ttl time.Duration, username string, role models.Role) string {
	t.Helper()
	tok, err := utils.GenerateJWT(secret, ttl, username, string(role))
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

func TestJWTMiddleware(t *testing.T) {
	r := newAuthRouter()
	staff := token(t, testSecret, time.Hour, "sam", models.RoleStaff)
	admin := token(t, testSecret, time.Hour, "ann", models.RoleAdmin)

	tests := []struct {
		name       string
		target     string
		auth       string
		wantStatus int
		wantCode   string
	}{
		{"missing header", "/me", "", 401, "UNAUTHENTICATED"},
		{"not bearer", "/me", "Basic abc", 401, "UNAUTHENTICATED"},
		{"garbage token", "/me", "Bearer nope", 403, "FORBIDDEN"},
		{"wrong secret", "/me", "Bearer " + token(t, "other", time.Hour, "sam", models.RoleStaff), 403, "FORBIDDEN"},
		{"expired", "/me", "Bearer " + token(t, testSecret, -time.Minute, "sam", models.RoleStaff), 403, "FORBIDDEN"},
		{"staff ok", "/me", "Bearer " + staff, 200, ""},
		{"staff on admin route", "/admin", "Bearer " + staff, 403, "INSUFFICIENT_PRIVILEGE"},
		{"admin on admin route", "/admin", "Bearer " + admin, 200, ""},
		{"stream query token", "/stream?token=" + staff, "", 200, ""},
		{"query token ignored on normal route", "/me?token=" + staff, "", 401, "UNAUTHENTICATED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.target, tt.auth)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if got := errCode(t, w); got != tt.wantCode {
					t.Fatalf("error code = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}

func TestRecoveryMiddlewareReturnsGeneric500(t *testing.T) {
	w := do(newAuthRouter(), http.MethodGet, "/panic", "")
	if w.Code != 500 {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := errCode(t, w); got != "INTERNAL_ERROR" {
		t.Fatalf("code = %q", got)
	}
}

func TestLoginRateLimiter(t *testing.T) {
	rl := NewLoginRateLimiter(3, time.Minute)
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if rl.Blocked("1.2.3.4") {
			t.Fatalf("blocked after %d failures", i)
		}
		rl.Fail("1.2.3.4")
	}
	if !rl.Blocked("1.2.3.4") {
		t.Fatal("not blocked after 3 failures")
	}
	if rl.Blocked("5.6.7.8") {
		t.Fatal("other ip blocked")
	}

	now = now.Add(2 * time.Minute)
	if rl.Blocked("1.2.3.4") {
		t.Fatal("still blocked after window")
	}

	rl.Fail("1.2.3.4")
	rl.Reset("1.2.3.4")
	if len(rl.attempts) != 0 {
		t.Fatalf("attempts = %d after reset", len(rl.attempts))
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://shop.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(200) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("allowed origin header = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin header = %q, want empty", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
}

func TestLoggingMiddlewareRequestID(t *testing.T) {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/x", func(c *gin.Context) { utils.Success(c, 200, "ok", nil) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("echoed request id = %q, want abc-123", got)
	}
	var resp utils.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Meta.RequestID != "abc-123" {
		t.Fatalf("meta.requestId = %q, want abc-123", resp.Meta.RequestID)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "has space")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got == "" || got == "has space" {
		t.Fatalf("request id = %q, want a generated id", got)
	}
}
