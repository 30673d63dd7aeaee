package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"studentdesk/internal/config"
	"studentdesk/internal/middleware"
	"studentdesk/internal/oauth"
	"studentdesk/internal/service"
	"studentdesk/internal/session"
)

// Pinger reports whether a backing service answers.
type Pinger struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Log       zerolog.Logger
	Config    *config.AppConfig
	Auth      *service.AuthService
	Students  *service.StudentService
	Sessions  *session.Manager
	Cookies   *session.Cookies
	Providers oauth.Registry
	Pingers   []Pinger
}

type HandlerSet struct {
	log        zerolog.Logger
	cfg        *config.AppConfig
	auth       *service.AuthService
	students   *service.StudentService
	sessions   *session.Manager
	cookies    *session.Cookies
	providers  oauth.Registry
	oauthState sessions.Store
	pingers    []Pinger
}

func NewHandlerSet(deps Deps) HandlerSet {
	return HandlerSet{
		log:        deps.Log,
		cfg:        deps.Config,
		auth:       deps.Auth,
		students:   deps.Students,
		sessions:   deps.Sessions,
		cookies:    deps.Cookies,
		providers:  deps.Providers,
		oauthState: newOAuthStateStore(deps.Config.Session),
		pingers:    deps.Pingers,
	}
}

func (h HandlerSet) Register(engine *gin.Engine) {
	requireSession := middleware.RequireSession(h.sessions, h.cookies)

	engine.GET("/healthz", h.Health)
	engine.GET("/", middleware.OptionalSession(h.sessions, h.cookies), h.Root)

	engine.GET("/login", h.LoginPage)
	engine.POST("/login", h.Login)
	engine.GET("/signup", h.SignupPage)
	engine.POST("/signup", h.Signup)
	engine.GET("/forgot-password", h.ForgotPasswordPage)
	engine.POST("/forgot-password", h.ForgotPassword)
	engine.POST("/set-new-password", h.SetNewPassword)
	engine.GET("/logout", requireSession, h.Logout)

	external := engine.Group("/auth")
	external.GET("/:provider", h.BeginExternalLogin)
	external.GET("/:provider/callback", h.CompleteExternalLogin)

	students := engine.Group("/students", requireSession)
	{
		students.GET("", h.ListStudents)
		students.POST("", h.CreateStudent)
		students.GET("/new", h.NewStudentPage)
		students.GET("/:id/edit", h.EditStudentPage)
		students.PUT("/:id", h.UpdateStudent)
		students.DELETE("/:id", h.DeleteStudent)
	}

	api := engine.Group("/api")
	api.POST("/token", h.IssueToken)

	apiStudents := api.Group("/students")
	if h.cfg.API.RequireAuth {
		apiStudents.Use(middleware.RequireAPIAuth(h.sessions, h.cookies, h.auth.ParseAPIToken))
	}
	{
		apiStudents.GET("", h.APIListStudents)
		apiStudents.POST("", h.APICreateStudent)
		apiStudents.GET("/:id", h.APIGetStudent)
		apiStudents.PUT("/:id", h.APIUpdateStudent)
		apiStudents.DELETE("/:id", h.APIDeleteStudent)
	}
}

func (h HandlerSet) Root(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); ok {
		c.Redirect(http.StatusFound, "/students")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// render fills the fields every page expects before executing the template.
func (h HandlerSet) render(c *gin.Context, status int, name string, data gin.H) {
	if _, ok := data["Form"]; !ok {
		data["Form"] = map[string]string{}
	}
	if username, ok := middleware.CurrentUser(c); ok {
		data["Username"] = username
	}
	c.HTML(status, name, data)
}

func (h HandlerSet) logger(c *gin.Context) *zerolog.Logger {
	if l := zerolog.Ctx(c.Request.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.log
}

// startSession replaces whatever session the client carried with a fresh one.
func (h HandlerSet) startSession(c *gin.Context, username string) error {
	handle, err := h.sessions.Create(c.Request.Context(), h.cookies.Read(c.Request), username)
	if err != nil {
		return err
	}
	return h.cookies.Write(c.Writer, handle)
}

func (h HandlerSet) providerNames() []string {
	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
