package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdesk/internal/config"
	"studentdesk/internal/repository/memstore"
	"studentdesk/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessions() (*session.Manager, *session.Cookies) {
	manager := session.NewManager(memstore.NewSessionRepository(), time.Hour)
	cookies := session.NewCookies(config.SessionConfig{Secret: "s", TTL: time.Hour, CookieName: "sid", HTTPOnly: true})
	return manager, cookies
}

func sessionCookie(t *testing.T, manager *session.Manager, cookies *session.Cookies, username string) *http.Cookie {
	t.Helper()
	handle, err := manager.Create(context.Background(), "", username)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, cookies.Write(rec, handle))
	return rec.Result().Cookies()[0]
}

func whoAmI(c *gin.Context) {
	username, _ := CurrentUser(c)
	c.String(http.StatusOK, username)
}

func TestRequireSessionRedirectsAnonymous(t *testing.T) {
	manager, cookies := newSessions()
	engine := gin.New()
	engine.GET("/students", RequireSession(manager, cookies), whoAmI)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.AddCookie(sessionCookie(t, manager, cookies, "alice"))
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestRequireAPIAuth(t *testing.T) {
	manager, cookies := newSessions()
	parse := func(token string) (string, error) {
		if token == "good" {
			return "api-user", nil
		}
		return "", errors.New("bad token")
	}
	engine := gin.New()
	engine.GET("/api/students", RequireAPIAuth(manager, cookies, parse), whoAmI)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "api-user", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.AddCookie(sessionCookie(t, manager, cookies, "alice"))
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestMethodOverride(t *testing.T) {
	engine := gin.New()
	engine.PUT("/students/:id", func(c *gin.Context) { c.String(http.StatusOK, "put "+c.PostForm("name")) })
	engine.DELETE("/students/:id", func(c *gin.Context) { c.String(http.StatusOK, "delete") })
	handler := MethodOverride(engine)

	form := url.Values{"_method": {"PUT"}, "name": {"Amy"}}
	req := httptest.NewRequest(http.MethodPost, "/students/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "put Amy", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/students/1?_method=DELETE", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "delete", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/students/1?_method=TRACE", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryAnswersByAudience(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(zerolog.Nop()), Recovery(zerolog.Nop()))
	boom := func(*gin.Context) { panic("boom") }
	engine.GET("/api/students", boom)
	engine.GET("/students", boom)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Server error"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", rec.Body.String())
}

func TestRequestIDPreservesIncomingHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(zerolog.Nop()))
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Body.String())
	assert.Equal(t, "req-1", rec.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"http://app.test"}))
	engine.GET("/api/students", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/students", nil)
	req.Header.Set("Origin", "http://app.test")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
