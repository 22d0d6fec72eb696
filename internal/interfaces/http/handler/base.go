// Package handler 提供 HTTP 请求处理器
package handler

import (
	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/interfaces/http/dto"
	"ad-studio-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// currentSession 取出会话中间件注入的存储，缺失时直接写 500
func currentSession(c *gin.Context) (*session.Store, bool) {
	sess := middleware.SessionStore(c)
	if sess == nil {
		dto.InternalError(c, "session not initialized")
		return nil, false
	}
	return sess, true
}

// bindOptionalJSON 允许空请求体
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}
