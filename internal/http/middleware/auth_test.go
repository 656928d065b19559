package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/support-backend/internal/platform/logger"
)

func newAuthTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type fakeTokenVerifier struct {
	principal Principal
	err       error
}

func (f *fakeTokenVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	if f.err != nil {
		return Principal{}, f.err
	}
	return f.principal, nil
}

func runMiddlewareChain(handlers ...gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(handlers...)
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	return w
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	am := NewAuthMiddleware(newAuthTestLogger(t), &fakeTokenVerifier{})
	w := runMiddlewareChain(am.RequireAuth())
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	am := NewAuthMiddleware(newAuthTestLogger(t), &fakeTokenVerifier{err: errInvalidToken})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(am.RequireAuth())
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", w.Code)
	}
}

func TestRequireAuthAcceptsValidBearerToken(t *testing.T) {
	am := NewAuthMiddleware(newAuthTestLogger(t), &fakeTokenVerifier{principal: Principal{UserID: "u1", TenantID: "acme"}})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	var captured Principal
	r.Use(am.RequireAuth())
	r.GET("/protected", func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			t.Fatalf("expected principal in context")
		}
		captured = p
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if captured.UserID != "u1" || captured.TenantID != "acme" {
		t.Fatalf("expected principal to propagate, got %+v", captured)
	}
}

func TestRequireAuthAcceptsTokenFromQueryParam(t *testing.T) {
	am := NewAuthMiddleware(newAuthTestLogger(t), &fakeTokenVerifier{principal: Principal{UserID: "u2"}})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(am.RequireAuth())
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/protected?token=good-token", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
}

func TestRequireAdminRejectsNonAdminPrincipal(t *testing.T) {
	am := NewAuthMiddleware(newAuthTestLogger(t), &fakeTokenVerifier{principal: Principal{UserID: "u1", IsAdmin: false}})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(am.RequireAuth(), am.RequireAdmin())
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", w.Code)
	}
}

func TestRequireAdminAcceptsAdminPrincipal(t *testing.T) {
	am := NewAuthMiddleware(newAuthTestLogger(t), &fakeTokenVerifier{principal: Principal{UserID: "u1", IsAdmin: true}})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(am.RequireAuth(), am.RequireAdmin())
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
}
