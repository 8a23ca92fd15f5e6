package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/usecase"
)

type stubAuthenticator struct {
	principals map[string]*domain.Principal
	err        error
	seen       []string
}

func (s *stubAuthenticator) AuthenticateRequest(_ context.Context, token string) (*domain.Principal, error) {
	s.seen = append(s.seen, token)
	if s.err != nil {
		return nil, s.err
	}
	if principal, ok := s.principals[token]; ok {
		return principal, nil
	}
	return nil, usecase.ErrUnauthorized
}

func TestSessionTokenPrecedence(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		header   map[string]string
		cookie   string
		expected string
	}{
		{name: "bearer wins", header: map[string]string{"Authorization": "Bearer bearer-token", SessionTokenHeader: "header-token"}, cookie: "cookie-token", expected: "bearer-token"},
		{name: "bearer is case insensitive", header: map[string]string{"Authorization": "bearer lower"}, expected: "lower"},
		{name: "header beats cookie", header: map[string]string{SessionTokenHeader: "header-token"}, cookie: "cookie-token", expected: "header-token"},
		{name: "non bearer scheme ignored", header: map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}, cookie: "cookie-token", expected: "cookie-token"},
		{name: "empty bearer falls through", header: map[string]string{"Authorization": "Bearer   ", SessionTokenHeader: "header-token"}, expected: "header-token"},
		{name: "nothing supplied", expected: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tc.cookie})
			}
			c.Request = req

			if got := SessionToken(c); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func newProtectedRouter(auth Authenticator, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EnrichContext())

	handlers := append([]gin.HandlerFunc{RequireAuth(auth)}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		principal, _ := GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"account_id": principal.AccountID})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestRequireAuth(t *testing.T) {
	auth := &stubAuthenticator{principals: map[string]*domain.Principal{
		"good": {AccountID: "acc-1", UserType: "teacher"},
	}}
	router := newProtectedRouter(auth)

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{name: "missing token", status: http.StatusUnauthorized},
		{name: "unknown token", token: "bad", status: http.StatusUnauthorized},
		{name: "valid token", token: "good", status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.token != "" {
				req.Header.Set(SessionTokenHeader, tc.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}

	if len(auth.seen) != 2 {
		t.Fatalf("authenticator should not be called without a token, calls=%d", len(auth.seen))
	}
}

func TestRequireAuthStoreFailure(t *testing.T) {
	router := newProtectedRouter(&stubAuthenticator{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestRequireAdminAndPermission(t *testing.T) {
	auth := &stubAuthenticator{principals: map[string]*domain.Principal{
		"admin":   {AccountID: "acc-admin", UserType: domain.AdminUserType, Permissions: map[string]bool{"manage_users": true}},
		"teacher": {AccountID: "acc-teacher", UserType: "teacher", Permissions: map[string]bool{"manage_courses": true}},
	}}

	cases := []struct {
		name   string
		guard  gin.HandlerFunc
		token  string
		status int
	}{
		{name: "admin passes admin guard", guard: RequireAdmin(), token: "admin", status: http.StatusOK},
		{name: "teacher fails admin guard", guard: RequireAdmin(), token: "teacher", status: http.StatusForbidden},
		{name: "teacher holds manage_courses", guard: RequirePermission("manage_courses"), token: "teacher", status: http.StatusOK},
		{name: "teacher lacks manage_users", guard: RequirePermission("manage_users"), token: "teacher", status: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newProtectedRouter(auth, tc.guard)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tc.token})
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

func TestRequireAdminWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
