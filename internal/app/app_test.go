package app

import (
	"context"
	"encoding/json"
	"io"
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
	"studentdesk/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		HTTP:        config.HTTPConfig{Host: "127.0.0.1", Port: 0},
		Storage:     config.StorageConfig{Driver: config.StorageDriverMemory},
		Session: config.SessionConfig{
			Store:      config.SessionStoreMemory,
			Secret:     "test-secret",
			TTL:        time.Hour,
			CookieName: "sid",
			SameSite:   "lax",
			HTTPOnly:   true,
		},
		Security: config.SecurityConfig{
			JWTSecret:         "jwt-secret",
			JWTTTL:            time.Hour,
			MinPasswordLength: 6,
		},
		Students:  config.StudentsConfig{RequireGender: true},
		Bootstrap: config.BootstrapConfig{AdminUsername: "admin", AdminPassword: "admin123"},
		Jobs:      config.JobsConfig{SessionSweep: "0 */15 * * * *"},
	}
}

func newTestApp(t *testing.T, cfg *config.AppConfig) *client {
	t.Helper()
	application, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown(context.Background()) })
	return &client{t: t, handler: application.Server().Handler(), cookies: map[string]*http.Cookie{}}
}

// client is a minimal browser: it remembers cookies between requests.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (c *client) do(method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header[k] = v
	}
	for _, cookie := range c.cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, nil, nil)
}

func (c *client) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, path, strings.NewReader(values.Encode()), http.Header{
		"Content-Type": {"application/x-www-form-urlencoded"},
	})
}

func (c *client) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	return c.do(method, path, strings.NewReader(body), http.Header{"Content-Type": {"application/json"}})
}

func (c *client) login(username, password string) *httptest.ResponseRecorder {
	return c.postForm("/login", url.Values{"username": {username}, "password": {password}})
}

func studentForm(name, studentID, age, major string) url.Values {
	return url.Values{
		"name":      {name},
		"studentId": {studentID},
		"age":       {age},
		"gender":    {"Female"},
		"major":     {major},
	}
}

func decodeStudents(t *testing.T, rec *httptest.ResponseRecorder) []models.Student {
	t.Helper()
	var students []models.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &students))
	return students
}

func TestSignupStartsSession(t *testing.T) {
	c := newTestApp(t, testConfig())

	rec := c.postForm("/signup", url.Values{"username": {"alice"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/students", rec.Header().Get("Location"))
	require.Contains(t, c.cookies, "sid")

	rec = c.get("/students")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logged in as alice")

	rec = c.get("/")
	assert.Equal(t, "/students", rec.Header().Get("Location"))
}

func TestSignupRejectsShortPasswordAndTakenName(t *testing.T) {
	c := newTestApp(t, testConfig())

	rec := c.postForm("/signup", url.Values{"username": {"bob"}, "password": {"123"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password too short (min 6 chars)")

	rec = c.postForm("/signup", url.Values{"username": {"admin"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already taken")
	assert.NotContains(t, c.cookies, "sid")
}

func TestGuardRedirectsAnonymous(t *testing.T) {
	c := newTestApp(t, testConfig())

	for _, path := range []string{"/students", "/students/new", "/students/abc/edit", "/logout"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}

	rec := c.postForm("/students", studentForm("Amy Lau", "12345678", "21", "Biology"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = c.get("/")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestWrongPasswordSetsNoSession(t *testing.T) {
	c := newTestApp(t, testConfig())

	rec := c.login("admin", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wrong username or password")
	for _, cookie := range rec.Result().Cookies() {
		assert.NotEqual(t, "sid", cookie.Name)
	}

	rec = c.login("nobody", "admin123")
	assert.Contains(t, rec.Body.String(), "Wrong username or password")

	rec = c.login("admin", "admin123")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, c.cookies, "sid")
}

func TestLoginRegeneratesSession(t *testing.T) {
	c := newTestApp(t, testConfig())

	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)
	first := *c.cookies["sid"]

	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)
	assert.NotEqual(t, first.Value, c.cookies["sid"].Value)

	stale := &client{t: t, handler: c.handler, cookies: map[string]*http.Cookie{"sid": &first}}
	rec := stale.get("/students")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	c := newTestApp(t, testConfig())
	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)
	token := *c.cookies["sid"]

	rec := c.get("/logout")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	replay := &client{t: t, handler: c.handler, cookies: map[string]*http.Cookie{"sid": &token}}
	assert.Equal(t, http.StatusSeeOther, replay.get("/students").Code)
}

func TestTamperedCookieIsAnonymous(t *testing.T) {
	c := newTestApp(t, testConfig())
	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)

	c.cookies["sid"].Value = c.cookies["sid"].Value[:len(c.cookies["sid"].Value)-2] + "xx"
	assert.Equal(t, http.StatusSeeOther, c.get("/students").Code)
}

func TestBrowserAndAPIShareStore(t *testing.T) {
	c := newTestApp(t, testConfig())
	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)

	rec := c.postForm("/students", studentForm("Amy Lau", "12345678", "21", "Biology"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/students", rec.Header().Get("Location"))

	students := decodeStudents(t, c.get("/api/students"))
	require.Len(t, students, 1)
	assert.Equal(t, "Amy Lau", students[0].Name)
	assert.Equal(t, 21, students[0].Age)

	rec = c.sendJSON(http.MethodPost, "/api/students", `{"name":"Ben Ho","studentId":87654321,"age":"22","gender":"Male","major":"Math"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "87654321", created.StudentID)

	rec = c.get("/students")
	assert.Contains(t, rec.Body.String(), "Ben Ho")
	assert.Contains(t, rec.Body.String(), "Amy Lau")

	rec = c.get("/api/students/" + created.ID)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListFiltersOnBothSurfaces(t *testing.T) {
	c := newTestApp(t, testConfig())
	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)

	for _, form := range []url.Values{
		studentForm("Amy Lau", "11111111", "21", "Biology"),
		studentForm("Ben Ho", "22222222", "35", "Marine biology"),
		studentForm("Cat Yu", "33333333", "19", "History"),
	} {
		require.Equal(t, http.StatusSeeOther, c.postForm("/students", form).Code)
	}

	students := decodeStudents(t, c.get("/api/students?major=BIO&minAge=30"))
	require.Len(t, students, 1)
	assert.Equal(t, "Ben Ho", students[0].Name)

	students = decodeStudents(t, c.get("/api/students?maxAge=abc"))
	assert.Len(t, students, 3)

	body := c.get("/students?name=cat").Body.String()
	assert.Contains(t, body, "Cat Yu")
	assert.NotContains(t, body, "Amy Lau")
}

func TestValidationErrors(t *testing.T) {
	c := newTestApp(t, testConfig())
	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)

	rec := c.postForm("/students", studentForm("Amy Lau", "12345678", "16", "Biology"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Age must be between 17 and 100")
	assert.Contains(t, rec.Body.String(), `value="Amy Lau"`)

	rec = c.postForm("/students", studentForm("", "12345678", "20", "Biology"))
	assert.Contains(t, rec.Body.String(), "All fields are required!")

	rec = c.sendJSON(http.MethodPost, "/api/students", `{"name":"Amy Lau","studentId":"12ab","age":20,"gender":"Female","major":"Bio"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Student ID must be 8–10 digits only"}`, rec.Body.String())

	rec = c.sendJSON(http.MethodPost, "/api/students", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusSeeOther, c.postForm("/students", studentForm("Amy Lau", "12345678", "20", "Biology")).Code)
	rec = c.postForm("/students", studentForm("Ben Ho", "12345678", "20", "Math"))
	assert.Contains(t, rec.Body.String(), "This Student ID already exists!")

	rec = c.sendJSON(http.MethodPost, "/api/students", `{"name":"Ben Ho","studentId":"12345678","age":20,"gender":"Male","major":"Math"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodOverrideUpdatesAndDeletes(t *testing.T) {
	c := newTestApp(t, testConfig())
	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)

	rec := c.sendJSON(http.MethodPost, "/api/students", `{"name":"Amy Lau","studentId":"12345678","age":21,"gender":"Female","major":"Biology"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = c.get("/students/" + created.ID + "/edit")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="12345678"`)

	form := studentForm("Amy Lau", "12345678", "22", "Chemistry")
	form.Set("_method", "PUT")
	rec = c.postForm("/students/"+created.ID, form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	var updated models.Student
	require.NoError(t, json.Unmarshal(c.get("/api/students/"+created.ID).Body.Bytes(), &updated))
	assert.Equal(t, "Chemistry", updated.Major)
	assert.Equal(t, 22, updated.Age)

	rec = c.postForm("/students/"+created.ID+"?_method=DELETE", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, http.StatusNotFound, c.get("/api/students/"+created.ID).Code)
}

func TestMissingStudentAcrossSurfaces(t *testing.T) {
	c := newTestApp(t, testConfig())

	rec := c.do(http.MethodDelete, "/api/students/does-not-exist", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())

	rec = c.sendJSON(http.MethodPut, "/api/students/does-not-exist", `{"name":"Amy Lau","studentId":"12345678","age":21,"gender":"Female","major":"Biology"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)
	rec = c.postForm("/students/does-not-exist?_method=DELETE", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/students", rec.Header().Get("Location"))

	rec = c.postForm("/students/does-not-exist?_method=PUT", studentForm("Amy Lau", "12345678", "21", "Biology"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/students", rec.Header().Get("Location"))
	assert.Empty(t, decodeStudents(t, c.get("/api/students")))

	rec = c.get("/students/does-not-exist/edit")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Student not found", rec.Body.String())
}

func TestAPIAuthToggle(t *testing.T) {
	cfg := testConfig()
	cfg.API.RequireAuth = true
	c := newTestApp(t, cfg)

	rec := c.get("/api/students")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	rec = c.sendJSON(http.MethodPost, "/api/token", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.sendJSON(http.MethodPost, "/api/token", `{"username":"admin","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var token struct {
		Token     string `json:"token"`
		TokenType string `json:"tokenType"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.Equal(t, "Bearer", token.TokenType)

	rec = c.do(http.MethodGet, "/api/students", nil, http.Header{"Authorization": {"Bearer " + token.Token}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	require.Equal(t, http.StatusSeeOther, c.login("admin", "admin123").Code)
	assert.Equal(t, http.StatusOK, c.get("/api/students").Code)
}

func TestForgotPasswordFlow(t *testing.T) {
	c := newTestApp(t, testConfig())

	rec := c.postForm("/forgot-password", url.Values{"username": {"ghost"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")

	rec = c.postForm("/forgot-password", url.Values{"username": {"admin"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Set a new password for admin")

	rec = c.postForm("/set-new-password", url.Values{"username": {"admin"}, "password": {"brandnew"}, "confirm": {"different"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")

	rec = c.postForm("/set-new-password", url.Values{"username": {"admin"}, "password": {"abc"}, "confirm": {"abc"}})
	assert.Contains(t, rec.Body.String(), "Password too short (min 6 chars)")

	rec = c.postForm("/set-new-password", url.Values{"username": {"admin"}, "password": {"brandnew"}, "confirm": {"brandnew"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password changed successfully!")

	assert.Equal(t, http.StatusUnauthorized, c.login("admin", "admin123").Code)
	assert.Equal(t, http.StatusSeeOther, c.login("admin", "brandnew").Code)
}

func TestExternalLoginRejectsForgedState(t *testing.T) {
	cfg := testConfig()
	cfg.OAuth.Facebook = config.FacebookConfig{ClientID: "app-id", ClientSecret: "app-secret", CallbackURL: "http://localhost/auth/facebook/callback"}
	c := newTestApp(t, cfg)

	assert.Contains(t, c.get("/login").Body.String(), "/auth/facebook")

	rec := c.get("/auth/facebook")
	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app-id", location.Query().Get("client_id"))
	assert.NotEmpty(t, location.Query().Get("state"))

	rec = c.get("/auth/facebook/callback?state=forged&code=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")
	assert.NotContains(t, c.cookies, "sid")

	assert.Equal(t, http.StatusNotFound, c.get("/auth/twitter").Code)
}

func TestHealth(t *testing.T) {
	c := newTestApp(t, testConfig())

	rec := c.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string `json:"status"`
		Students int64  `json:"students"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Zero(t, body.Students)
}

func TestNewRejectsUnreachableRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Store = config.SessionStoreRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
