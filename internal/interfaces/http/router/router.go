// Package router 提供 HTTP 路由配置
package router

import (
	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/config"
	"ad-studio-api/internal/interfaces/http/handler"
	"ad-studio-api/internal/interfaces/http/middleware"
	"ad-studio-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterHandlers 路由依赖的处理器集合
type RouterHandlers struct {
	Health  *handler.HealthHandler
	Script  *handler.ScriptHandler
	Refine  *handler.RefineHandler
	Version *handler.VersionHandler
	Audio   *handler.AudioHandler
	Session *handler.SessionHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *RouterHandlers
	tokens   *utils.JWTManager
	registry *session.Registry
	limiter  middleware.RateLimiter
}

// NewWithDeps 创建路由器，limiter 为 nil 时不限流
func NewWithDeps(cfg *config.Config, handlers *RouterHandlers, tokens *utils.JWTManager, registry *session.Registry, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		tokens:   tokens,
		registry: registry,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsPath() string {
	if p := r.cfg.Observability.Metrics.Path; p != "" {
		return p
	}
	return "/metrics"
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware() {
	systemPaths := append([]string{}, middleware.DefaultAuditSkipPaths...)
	systemPaths = append(systemPaths, r.metricsPath())

	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, systemPaths...))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(systemPaths...))
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	v1.Use(
		middleware.Session(r.tokens, r.registry),
		middleware.Audit(middleware.AuditConfig{Enabled: true}),
		middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:           r.cfg.Security.RateLimit.Enabled,
			RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
		}, r.limiter),
	)
	RegisterV1Routes(v1, h)
}
