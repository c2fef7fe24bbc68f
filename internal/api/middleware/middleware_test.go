package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/model"
	"github.com/masoommulla/project-sub001/internal/pkg/logger"
	"github.com/masoommulla/project-sub001/internal/pkg/token"
	"github.com/masoommulla/project-sub001/internal/storage/memstore"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *token.Issuer, *memstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	issuer := token.NewIssuer("test-secret", time.Hour)

	r := gin.New()
	authed := r.Group("/", AuthMiddleware(issuer, store, logger.Discard()))
	authed.GET("/me", func(c *gin.Context) {
		s, ok := SessionFrom(c.Request.Context())
		if !ok || CurrentUser(c) == nil || s.User.ID != CurrentUser(c).ID {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, s.User.ID)
	})
	authed.GET("/admin", RequireRoles(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, issuer, store
}

func doRequest(r http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, issuer, store := newAuthRouter(t)
	require.NoError(t, store.CreateUser(context.Background(), &model.User{ID: "u1", Email: "a@example.com", Role: model.RoleUser}))

	tok, _, err := issuer.Issue("u1", model.RoleUser)
	require.NoError(t, err)
	ghost, _, err := issuer.Issue("deleted", model.RoleUser)
	require.NoError(t, err)

	w := doRequest(r, "/me", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic " + tok,
		"garbage":      "Bearer nope",
		"unknown user": "Bearer " + ghost,
	} {
		w := doRequest(r, "/me", header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.JSONEq(t, `{"success":false,"message":"not authorized"}`, w.Body.String(), name)
	}
}

func TestRequireRoles(t *testing.T) {
	r, issuer, store := newAuthRouter(t)
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "u1", Email: "a@example.com", Role: model.RoleUser}))
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "a1", Email: "admin@example.com", Role: model.RoleAdmin}))

	userTok, _, _ := issuer.Issue("u1", model.RoleUser)
	adminTok, _, _ := issuer.Issue("a1", model.RoleAdmin)

	w := doRequest(r, "/admin", "Bearer "+userTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"access denied"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, doRequest(r, "/admin", "Bearer "+adminTok).Code)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, time.Duration) { return false, 1500 * time.Millisecond }

func TestRateLimitAndCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/limited", RateLimit(denyAll{}, "api"), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/limited", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
