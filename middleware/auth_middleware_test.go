package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yacine2174/projet-master-sub002/utils"
)

func newAuthRouter(notify func()) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(notify), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userID": c.GetString("userID"),
			"email":  c.GetString("email"),
			"role":   c.GetString("role"),
		})
	})
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	notified := 0
	r := newAuthRouter(func() { notified++ })

	w := doGet(r, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing token")
	assert.Equal(t, 1, notified, "auth failure must fire the invalidation signal")
	assert.Empty(t, w.Header().Get("WWW-Authenticate"),
		"401 must be a JSON response, never a protocol credential challenge")
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	notified := 0
	r := newAuthRouter(func() { notified++ })

	w := doGet(r, "not-a-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired token")
	assert.Equal(t, 1, notified)
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, _, err := utils.GenerateAccessToken("42", "a@x.com", "SSI", -time.Minute)
	require.NoError(t, err)

	notified := 0
	r := newAuthRouter(func() { notified++ })
	w := doGet(r, token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, notified)
}

func TestAuthMiddlewareAttachesIdentity(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, _, err := utils.GenerateAccessToken("42", "a@x.com", "RSSI", time.Hour)
	require.NoError(t, err)

	notified := 0
	r := newAuthRouter(func() { notified++ })
	w := doGet(r, token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userID":"42","email":"a@x.com","role":"RSSI"}`, w.Body.String())
	assert.Zero(t, notified)
}

func TestRequireReviewer(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/review", AuthMiddleware(nil), RequireReviewer(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for role, want := range map[string]int{
		"ADMIN": http.StatusOK,
		"RSSI":  http.StatusOK,
		"SSI":   http.StatusForbidden,
	} {
		token, _, err := utils.GenerateAccessToken("42", "a@x.com", role, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/review", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, want, w.Code, "role %s", role)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AuthMiddleware(nil), RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for role, want := range map[string]int{
		"ADMIN": http.StatusOK,
		"RSSI":  http.StatusForbidden,
		"SSI":   http.StatusForbidden,
	} {
		token, _, err := utils.GenerateAccessToken("42", "a@x.com", role, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, want, w.Code, "role %s", role)
	}
}
