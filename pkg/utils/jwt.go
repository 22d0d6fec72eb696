// Package utils 提供通用工具函数
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// DefaultSessionTTL 未配置有效期时的会话令牌有效期
const DefaultSessionTTL = 30 * 24 * time.Hour

// Claims 会话令牌声明
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTManager 会话令牌管理器
type JWTManager struct {
	secret string
	issuer string
	ttl    time.Duration
}

// NewJWTManager 创建令牌管理器
func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTManager{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// NewSession 生成新的会话 ID 及其令牌
func (m *JWTManager) NewSession() (sessionID, token string, err error) {
	sessionID = uuid.NewString()
	token, err = m.GenerateToken(sessionID)
	if err != nil {
		return "", "", err
	}
	return sessionID, token, nil
}

// GenerateToken 为会话签发令牌
func (m *JWTManager) GenerateToken(sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secret))
}

// ParseToken 解析并验证令牌
func (m *JWTManager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(m.secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
