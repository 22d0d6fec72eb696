// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"strings"

	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/interfaces/http/dto"
	"ad-studio-api/pkg/logger"
	"ad-studio-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	// SessionTokenHeader 会话令牌头，请求与响应都使用
	SessionTokenHeader = "X-Session-Token"

	sessionIDKey    = "session_id"
	sessionStoreKey = "session_store"
)

// Session 解析会话令牌，缺失或无效时签发新会话
func Session(tokens *utils.JWTManager, registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token := strings.TrimSpace(c.GetHeader(SessionTokenHeader))
		token = strings.TrimPrefix(token, "Bearer ")

		var sessionID string
		if token != "" {
			claims, err := tokens.ParseToken(token)
			switch {
			case err == nil:
				sessionID = claims.SessionID
			case errors.Is(err, utils.ErrExpiredToken):
				logger.Debug(ctx, "session token expired, issuing a new session")
			default:
				logger.Warn(ctx, "invalid session token, issuing a new session")
			}
		}

		if sessionID == "" {
			var err error
			sessionID, token, err = tokens.NewSession()
			if err != nil {
				logger.Error(ctx, "failed to issue session token", err)
				dto.InternalError(c, "failed to create session")
				c.Abort()
				return
			}
		}

		c.Set(sessionIDKey, sessionID)
		c.Set(sessionStoreKey, registry.Get(sessionID))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, logger.SessionIDKey, sessionID))
		c.Header(SessionTokenHeader, token)

		c.Next()
	}
}

// SessionStore 取出当前请求的会话存储
func SessionStore(c *gin.Context) *session.Store {
	if v, ok := c.Get(sessionStoreKey); ok {
		if s, ok := v.(*session.Store); ok {
			return s
		}
	}
	return nil
}

// SessionID 当前请求的会话 ID
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
