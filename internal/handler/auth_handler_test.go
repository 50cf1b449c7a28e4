package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLoginWrongPasswordIsGeneric(t *testing.T) {
	s := newTestServer(t)

	first := s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "admin", "password": "wrong"})
	second := s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "admin", "password": "wrong"})
	unknown := s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "nobody", "password": "wrong"})

	for _, w := range []*httptest.ResponseRecorder{first, second, unknown} {
		expectStatus(t, w, 401)
	}
	a, b, c := decodeError(t, first), decodeError(t, second), decodeError(t, unknown)
	if a != b || a != c {
		t.Fatalf("login errors differ: %+v / %+v / %+v", a, b, c)
	}
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 5; i++ {
		w := s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "admin", "password": "wrong"})
		expectStatus(t, w, 401)
	}
	w := s.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "admin", "password": "admin-pass"})
	expectStatus(t, w, 429)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPatch, "/api/user/password", s.staff, gin.H{"currentPassword": "nope", "newPassword": "new-pass"})
	expectStatus(t, w, 401)
	w = s.do(t, http.MethodPatch, "/api/user/password", s.staff, gin.H{"currentPassword": "staff-pass", "newPassword": "x"})
	expectStatus(t, w, 400)
	w = s.do(t, http.MethodPatch, "/api/user/password", s.staff, gin.H{"currentPassword": "staff-pass", "newPassword": "new-pass"})
	expectStatus(t, w, 200)

	s.login(t, "staff", "new-pass")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodGet, "/api/orders", "", nil), 401)
	expectStatus(t, s.do(t, http.MethodGet, "/api/orders", "not-a-token", nil), 403)
	expectStatus(t, s.do(t, http.MethodGet, "/api/users", s.staff, nil), 403)
	expectStatus(t, s.do(t, http.MethodGet, "/api/users", s.admin, nil), 200)
}
