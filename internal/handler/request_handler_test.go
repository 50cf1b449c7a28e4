package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/models"
)

func TestRequestWorkflow(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodPost, "/api/requests", "", gin.H{"productName": "Cream"}), 400)

	w := s.do(t, http.MethodPost, "/api/requests", "", gin.H{
		"contactInfo": "line: buyer01",
		"productUrl":  "https://shop.example.com/item/1",
		"productName": "Cream",
		"quantity":    "2",
	})
	expectStatus(t, w, 201)
	var created struct {
		Request models.Request `json:"request"`
	}
	decodeData(t, w, &created)
	if created.Request.Quantity != 2 || created.Request.Status != models.RequestPendingQuote {
		t.Fatalf("request = %+v", created.Request)
	}

	path := "/api/requests/" + created.Request.RequestID + "/status"
	expectStatus(t, s.do(t, http.MethodPatch, path, s.staff, gin.H{"status": "shipped"}), 400)
	expectStatus(t, s.do(t, http.MethodPatch, path, s.staff, gin.H{"status": "quoted"}), 200)

	w = s.do(t, http.MethodGet, "/api/requests", s.staff, nil)
	expectStatus(t, w, 200)
	var list []models.Request
	decodeData(t, w, &list)
	if len(list) != 1 || list[0].Status != models.RequestQuoted || list[0].IsNew || len(list[0].ActivityLog) != 1 {
		t.Fatalf("list = %+v", list)
	}
}

func TestUserManagement(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodPost, "/api/users", s.admin, gin.H{"username": "carol", "password": "carol-pass"}), 201)
	expectStatus(t, s.do(t, http.MethodPost, "/api/users", s.admin, gin.H{"username": "carol", "password": "carol-pass"}), 409)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/users/admin", s.admin, nil), 400)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/users/ghost", s.admin, nil), 404)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/users/carol", s.admin, nil), 200)

	w := s.do(t, http.MethodGet, "/api/users", s.admin, nil)
	if got := w.Body.String(); strings.Contains(got, "passwordHash") {
		t.Fatalf("user list leaks password hashes: %s", got)
	}
}

func TestPublicReferenceRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/categories", "", nil)
	expectStatus(t, w, 200)
	var cats []models.Category
	decodeData(t, w, &cats)
	if len(cats) != len(models.DefaultCategories) {
		t.Fatalf("categories = %d", len(cats))
	}

	expectStatus(t, s.do(t, http.MethodGet, "/health", "", nil), 200)
}
