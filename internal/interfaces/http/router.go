package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/prometheus"
	"github.com/AdamCoscia/KnowledgeVIS/internal/interfaces/http/handlers"
	"github.com/AdamCoscia/KnowledgeVIS/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unmounted.
type RouterConfig struct {
	SessionHandler *handlers.SessionHandler
	PresetHandler  *handlers.PresetHandler
	CacheHandler   *handlers.CacheHandler
	HealthHandler  *handlers.HealthHandler

	CORS      *middleware.CORSConfig
	RateLimit *middleware.RateLimitConfig
	Limiter   *middleware.Limiter
	Logging   middleware.LoggingConfig

	Logger      logging.Logger
	Metrics     *prometheus.AppMetrics
	Collector   prometheus.MetricsCollector
	MetricsPath string
}

// NewRouter builds the complete HTTP route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(logger, cfg.Logging, cfg.Metrics))
	if cfg.RateLimit != nil && cfg.Limiter != nil {
		r.Use(middleware.RateLimit(cfg.Limiter, *cfg.RateLimit))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Code: "COMMON_005", Message: "route not found"})
	})

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if cfg.Collector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.Collector.Handler()))
	}

	api := r.Group("/api/v1")
	registerSessionRoutes(api, cfg.SessionHandler)
	registerPresetRoutes(api, cfg.PresetHandler)
	if cfg.CacheHandler != nil {
		api.DELETE("/cache", cfg.CacheHandler.Purge)
	}
	return r
}

func registerSessionRoutes(r *gin.RouterGroup, h *handlers.SessionHandler) {
	if h == nil {
		return
	}
	r.GET("/sessions", h.List)
	r.POST("/sessions", h.Create)

	s := r.Group("/sessions/:id")
	s.GET("", h.Get)
	s.DELETE("", h.Delete)

	s.POST("/query", h.Query)
	s.POST("/cancel", h.Cancel)

	s.PUT("/selection", h.SetSelection)
	s.POST("/selection/:subject", h.Select)
	s.DELETE("/selection/:subject", h.Deselect)
	s.PUT("/sharing", h.SetSharing)

	s.GET("/views/:kind", h.Drawing)
	s.PUT("/views/:kind/settings", h.SetSettings)
	s.PUT("/views/:kind/viewport", h.SetViewport)

	s.POST("/drag", h.Drag)
	s.GET("/labels", h.Labels)
	s.POST("/occlusion", h.Occlusion)
	s.GET("/search", h.Search)

	s.POST("/export", h.Export)
	s.GET("/exports", h.Exports)
}

func registerPresetRoutes(r *gin.RouterGroup, h *handlers.PresetHandler) {
	if h == nil {
		return
	}
	r.GET("/presets", h.List)
	r.GET("/presets/:name", h.Get)
	r.POST("/presets/:name/next", h.Next)
}
