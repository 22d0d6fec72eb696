package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/infrastructure/persistence/memory"
	"ad-studio-api/pkg/logger"
	"ad-studio-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

func newSessionEngine(tokens *utils.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(Session(tokens, session.NewRegistry(memory.NewKVStore(), 0)))
	e.GET("/whoami", func(c *gin.Context) {
		if SessionStore(c) == nil || SessionStore(c).ID() != SessionID(c) {
			c.Status(http.StatusInternalServerError)
			return
		}
		if v, _ := c.Request.Context().Value(logger.SessionIDKey).(string); v != SessionID(c) {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, SessionID(c))
	})
	return e
}

func call(e *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set(SessionTokenHeader, token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestSession_IssuesAndReusesToken(t *testing.T) {
	tokens := utils.NewJWTManager("secret", "test", time.Hour)
	e := newSessionEngine(tokens)

	first := call(e, "")
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}
	token := first.Header().Get(SessionTokenHeader)
	if token == "" {
		t.Fatal("missing session token header")
	}

	second := call(e, token)
	if second.Body.String() != first.Body.String() {
		t.Fatalf("session changed: %q -> %q", first.Body.String(), second.Body.String())
	}

	bearer := call(e, "Bearer "+token)
	if bearer.Body.String() != first.Body.String() {
		t.Fatal("bearer prefix should be accepted")
	}
}

func TestSession_InvalidTokenStartsFresh(t *testing.T) {
	tokens := utils.NewJWTManager("secret", "test", time.Hour)
	e := newSessionEngine(tokens)

	forged, _ := utils.NewJWTManager("other", "test", time.Hour).GenerateToken("victim")
	w := call(e, forged)
	if w.Code != http.StatusOK || w.Body.String() == "victim" {
		t.Fatalf("forged token accepted: %q", w.Body.String())
	}
	if w.Header().Get(SessionTokenHeader) == forged {
		t.Fatal("forged token echoed back")
	}
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name    string
		limiter *fakeLimiter
		want    int
	}{
		{"allowed", &fakeLimiter{allow: true}, http.StatusOK},
		{"denied", &fakeLimiter{allow: false}, http.StatusTooManyRequests},
		{"limiter down fails open", &fakeLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := gin.New()
			e.Use(func(c *gin.Context) { c.Set(sessionIDKey, "s1"); c.Next() })
			e.Use(RateLimit(RateLimitConfig{Enabled: true, RequestsPerMinute: 5}, tt.limiter))
			e.GET("/v1/script", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/script", nil))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if len(tt.limiter.keys) != 1 || tt.limiter.keys[0] != "ratelimit:s1:GET /v1/script" {
				t.Fatalf("keys = %v", tt.limiter.keys)
			}
		})
	}
}

func TestRateLimit_DisabledSkipsLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := &fakeLimiter{}
	e := gin.New()
	e.Use(RateLimit(RateLimitConfig{Enabled: false}, limiter))
	e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK || len(limiter.keys) != 0 {
		t.Fatalf("status = %d, keys = %v", w.Code, limiter.keys)
	}
}
