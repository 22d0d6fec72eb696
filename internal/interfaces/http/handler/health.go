// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ad-studio-api/internal/domain/repository"
	"ad-studio-api/internal/domain/service"
	"ad-studio-api/internal/interfaces/http/dto"
	"ad-studio-api/internal/infrastructure/persistence/redis"
)

const readinessTimeout = 2 * time.Second

// HealthHandler 健康检查处理器
type HealthHandler struct {
	kv     repository.KVStore
	writer service.Scriptwriter
	redis  *redis.Client
}

// NewHealthHandler 创建健康检查处理器，redisClient 可为 nil
func NewHealthHandler(kv repository.KVStore, writer service.Scriptwriter, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		kv:     kv,
		writer: writer,
		redis:  redisClient,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status string `json:"status"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// ConnectionResponse 上游连通性
type ConnectionResponse struct {
	Connected bool  `json:"connected"`
	LatencyMs int64 `json:"latency_ms"`
}

func runCheck(ctx context.Context, fn func(context.Context) error) *readinessCheck {
	start := time.Now()
	err := fn(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready 就绪检查接口
//
// 会话存储不可用时不就绪；脚本服务与 redis 只影响 degraded 标记。
//
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]*readinessCheck{}
	ready := true

	if h.kv == nil {
		checks["storage"] = &readinessCheck{Status: "missing", Error: "session storage not configured"}
		ready = false
	} else {
		checks["storage"] = runCheck(ctx, h.kv.HealthCheck)
		ready = checks["storage"].Status == "ok"
	}

	if h.writer != nil {
		checks["scriptwriter"] = runCheck(ctx, h.writer.Ping)
		if checks["scriptwriter"].Status != "ok" {
			checks["scriptwriter"].Status = "degraded"
		}
	}

	if h.redis != nil {
		checks["redis"] = runCheck(ctx, h.redis.HealthCheck)
		if checks["redis"].Status != "ok" {
			checks["redis"].Status = "degraded"
		}
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// TestConnection 探测脚本服务连通性，失败时按上游错误返回
func (h *HealthHandler) TestConnection(c *gin.Context) {
	start := time.Now()
	if err := h.writer.Ping(c.Request.Context()); err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, &ConnectionResponse{Connected: true, LatencyMs: time.Since(start).Milliseconds()})
}
