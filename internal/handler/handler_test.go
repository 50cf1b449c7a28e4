package handler

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/cache"
	"github.com/GTDGit/groupbuy_api/internal/config"
	"github.com/GTDGit/groupbuy_api/internal/datastore"
	"github.com/GTDGit/groupbuy_api/internal/middleware"
	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/repository"
	"github.com/GTDGit/groupbuy_api/internal/service"
	"github.com/GTDGit/groupbuy_api/internal/sse"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

const testSecret = "handler-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	admin  string
	staff  string
}

// serverOptions adjusts newTestServerWith. An empty dbPath uses a fresh file.
type serverOptions struct {
	dbPath string
	idem   *cache.IdempotencyCache
}

func newTestIdempotencyCache(t *testing.T) *cache.IdempotencyCache {
	t.Helper()
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	client, err := cache.NewRedisClient(&config.RedisConfig{Host: host, Port: port})
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewIdempotencyCache(client)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, serverOptions{})
}

func newTestServerWith(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	if opts.dbPath == "" {
		opts.dbPath = filepath.Join(t.TempDir(), "db.json")
	}
	store, err := datastore.OpenFile(opts.dbPath)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	userRepo := repository.NewUserRepository(store)
	users := service.NewUserService(store, userRepo)
	auth := service.NewAuthService(store, userRepo, testSecret, time.Hour)
	catalog := service.NewCatalogService(store, repository.NewProductRepository(store))
	orders := service.NewOrderService(store, repository.NewOrderRepository(store), opts.idem, nil, nil)
	requests := service.NewRequestService(store, repository.NewRequestRepository(store), opts.idem, nil, nil)
	categories := service.NewCategoryService(store, repository.NewCategoryRepository(store))
	reports := service.NewReportService(orders, requests, time.UTC)

	ctx := t.Context()
	if _, err := users.Create(ctx, service.CreateUserInput{Username: "admin", Password: "admin-pass", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := users.Create(ctx, service.CreateUserInput{Username: "staff", Password: "staff-pass", Role: models.RoleStaff}); err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if err := categories.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}

	limiter := middleware.NewLoginRateLimiter(5, time.Minute)
	t.Cleanup(limiter.Stop)

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware())
	SetupRoutes(router, &Handlers{
		Health:   NewHealthHandler(store.Driver(), false, false),
		Auth:     NewAuthHandler(auth, limiter),
		Product:  NewProductHandler(catalog),
		Order:    NewOrderHandler(orders),
		Request:  NewRequestHandler(requests),
		User:     NewUserHandler(users),
		Category: NewCategoryHandler(categories),
		Admin:    NewAdminHandler(reports),
		SSE:      NewSSEHandler(sse.NewHub()),
	}, middleware.NewJWTMiddleware(testSecret))

	s := &testServer{router: router}
	s.admin = s.login(t, "admin", "admin-pass")
	s.staff = s.login(t, "staff", "staff-pass")
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": username, "password": password})
	if w.Code != 200 {
		t.Fatalf("login %s: status %d (%s)", username, w.Code, w.Body.String())
	}
	var data struct {
		Token string `json:"token"`
	}
	decodeData(t, w, &data)
	return data.Token
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorInfo {
	t.Helper()
	var resp utils.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	if resp.Error == nil {
		t.Fatalf("no error in response: %s", w.Body.String())
	}
	return *resp.Error
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (%s)", w.Code, want, w.Body.String())
	}
}

func orderBody(items ...gin.H) gin.H {
	return gin.H{
		"paopaohuId":     "PPH001",
		"email":          "buyer@example.com",
		"lastFiveDigits": "12345",
		"items":          items,
	}
}

func createOrder(t *testing.T, s *testServer, body gin.H) models.Order {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/orders", "", body)
	expectStatus(t, w, 201)
	var data struct {
		Order models.Order `json:"order"`
	}
	decodeData(t, w, &data)
	return data.Order
}
