package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterConfig carries everything NewRouter wires into the echo instance.
type RouterConfig struct {
	Auth            TokenService
	Users           UserService
	Recommendations RecommendationService
	Metrics         HTTPRecorder
	MetricsHandler  http.Handler
	RateLimiter     *RateLimiter
	AllowedOrigins  []string
	DevLogin        bool
}

// NewRouter builds the echo instance with middleware and all API routes.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewAppValidator()
	e.JSONSerializer = JSONSerializer{}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(RequestLogger())
	if cfg.Metrics != nil {
		e.Use(Metrics(cfg.Metrics))
	}
	e.Use(middleware.Recover())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}
	e.Use(Identify(cfg.Auth))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.MetricsHandler))
	}

	limit := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if cfg.RateLimiter != nil {
		limit = cfg.RateLimiter.Middleware()
	}

	api := e.Group("/api/v1")

	auth := NewAuthHandler(cfg.Auth)
	authGroup := api.Group("/auth")
	authGroup.GET("/google", auth.GoogleRedirect)
	authGroup.GET("/google/callback", auth.GoogleCallback)
	authGroup.GET("/github", auth.GitHubRedirect)
	authGroup.GET("/github/callback", auth.GitHubCallback)
	authGroup.POST("/refresh", auth.Refresh, limit)
	if cfg.DevLogin {
		authGroup.POST("/dev-token", auth.DevToken, limit)
	}

	users := NewUserHandler(cfg.Users)
	api.POST("/users", users.GetOrCreate, limit)
	api.GET("/me", users.Me)
	api.GET("/me/role", users.MyRole)

	recs := NewRecommendationHandler(cfg.Recommendations)
	api.GET("/recommendations", recs.List)
	api.POST("/recommendations", recs.Create, limit)
	api.DELETE("/recommendations/:id", recs.Delete, limit)
	api.PUT("/recommendations/:id/staff-pick", recs.SetStaffPick, limit)
	api.GET("/public/recommendations", recs.ListPublic)

	return e
}
