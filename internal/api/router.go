package api

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/service"
	"github.com/erazemk/vitrina/internal/session"
)

// Config holds the router's dependencies.
type Config struct {
	DB          *sql.DB
	Auth        *service.AuthService
	Catalog     *service.CatalogService
	Sessions    *session.Manager
	UploadsDir  string
	PublicURL   string
	Environment string
	Development bool
	Version     string
	CORSOrigins []string
	Log         zerolog.Logger
}

// NewRouter creates the Echo instance with all endpoints registered.
func NewRouter(cfg Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log, cfg.Development)

	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(cfg.Log))
	e.Use(echomiddleware.Recover())
	e.Use(recordMetrics())
	e.Use(echomiddleware.CORSWithConfig(corsConfig(cfg.CORSOrigins)))
	e.Use(withBaseURL(cfg.PublicURL))
	e.Use(touchSession(cfg.Sessions, cfg.Log))

	authHandler := &AuthHandler{Auth: cfg.Auth, Sessions: cfg.Sessions}
	productsHandler := &ProductsHandler{Catalog: cfg.Catalog}
	healthHandler := &HealthHandler{
		DB:          cfg.DB,
		Sessions:    cfg.Sessions,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	}

	requireSession := RequireSession(cfg.Sessions)

	api := e.Group("/api")

	// Products: reads are public, writes need a session.
	api.GET("/products", productsHandler.List)
	api.GET("/products/:id", productsHandler.Get)
	api.POST("/products", productsHandler.Create, requireSession)
	api.PUT("/products/:id", productsHandler.Update, requireSession)
	api.DELETE("/products/:id", productsHandler.Delete, requireSession)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/check", authHandler.Check)
	api.POST("/auth/change-password", authHandler.ChangePassword, requireSession)

	e.GET("/", healthHandler.Index)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.Static("/uploads", cfg.UploadsDir)

	return e
}

func corsConfig(origins []string) echomiddleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg := echomiddleware.CORSConfig{AllowOrigins: origins}
	// Browsers refuse credentials with a wildcard origin.
	if len(origins) != 1 || origins[0] != "*" {
		cfg.AllowCredentials = true
	}
	return cfg
}
