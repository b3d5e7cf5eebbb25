package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/lookout/api/handler"
	"github.com/use-agent/lookout/api/middleware"
	"github.com/use-agent/lookout/config"
	"github.com/use-agent/lookout/session"
	"github.com/use-agent/lookout/state"
	"github.com/use-agent/lookout/watch"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(p *session.Provider, w *watch.Watcher, store *state.Store, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(p, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Watch state
	protected.GET("/status", handler.Status(store))
	protected.GET("/report", handler.Report(store))

	// Actions
	protected.POST("/check", handler.Check(w))
	protected.POST("/reset", handler.Reset(store))

	return r
}
