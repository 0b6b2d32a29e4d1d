// Package http is the gin-based REST surface of connprobe.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/internal/interfaces/http/handlers"
	"github.com/turtacn/connprobe/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	HealthHandler *handlers.HealthHandler
	CheckHandler  *handlers.CheckHandler

	Logger  logging.Logger
	Logging middleware.LoggingConfig

	// Metrics records every request; MetricsHandler is mounted on MetricsPath.
	Metrics        middleware.HTTPMetrics
	MetricsHandler http.Handler
	MetricsPath    string

	// Mode is the gin mode: debug, release or test.
	Mode string
}

// NewRouter builds the route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Logging.SkipPaths == nil {
		cfg.Logging = middleware.DefaultLoggingConfig()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID(), middleware.Recovery(cfg.Logger), middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	if h := cfg.CheckHandler; h != nil {
		v1 := r.Group("/v1")
		v1.GET("/connectors", h.ListConnectors)
		v1.POST("/checks", h.RunCheck)
		v1.GET("/checks/latest", h.Latest)
	}

	return r
}

//Personal.AI order the ending
