// Package handler 提供 HTTP 请求处理器
package handler

import (
	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/interfaces/http/dto"
	"ad-studio-api/internal/interfaces/http/middleware"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SessionHandler 会话数据管理
type SessionHandler struct {
	registry *session.Registry
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(registry *session.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

// DeleteSession 删除会话下持久化的全部数据
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	ctx := c.Request.Context()
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	release, locked := sess.TryLock()
	if !locked {
		dto.AppError(c, apperrors.ErrOperationInProgress)
		return
	}
	defer release()

	sess.Reset(ctx)
	h.registry.Forget(middleware.SessionID(c))
	logger.Info(ctx, "session data cleared")
	dto.NoContent(c)
}
