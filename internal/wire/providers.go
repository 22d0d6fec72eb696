// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"ad-studio-api/internal/application/refine"
	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/application/versions"
	"ad-studio-api/internal/config"
	"ad-studio-api/internal/domain/repository"
	"ad-studio-api/internal/domain/service"
	"ad-studio-api/internal/infrastructure/llm"
	"ad-studio-api/internal/infrastructure/messaging"
	"ad-studio-api/internal/infrastructure/persistence/memory"
	"ad-studio-api/internal/infrastructure/persistence/postgres"
	"ad-studio-api/internal/infrastructure/persistence/redis"
	"ad-studio-api/internal/infrastructure/persistence/sqlite"
	"ad-studio-api/internal/infrastructure/scriptsvc"
	"ad-studio-api/internal/infrastructure/tts"
	"ad-studio-api/internal/interfaces/http/handler"
	"ad-studio-api/internal/interfaces/http/middleware"
	"ad-studio-api/pkg/logger"
	"ad-studio-api/pkg/utils"
)

// ProvideRedisClient redis 后端或 cache.redis.enabled 时建立连接，否则返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled && cfg.Storage.Backend != config.StorageBackendRedis {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "redis connected", "host", cfg.Cache.Redis.Host)
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideKVStore 按配置选择会话存储后端
func ProvideKVStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (repository.KVStore, func(), error) {
	backend := cfg.Storage.Backend
	logger.Info(ctx, "session storage selected", "backend", backend)

	switch backend {
	case config.StorageBackendMemory, "":
		return memory.NewKVStore(), func() {}, nil
	case config.StorageBackendSQLite:
		store, err := sqlite.NewKVStore(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.StorageBackendRedis:
		return redis.NewKVStore(redisClient, cfg.Storage.SessionTTL), func() {}, nil
	case config.StorageBackendPostgres:
		client, err := postgres.NewClient(&cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewKVStore(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// ProvideRegistry 会话视图缓存，空闲回收时间不超过会话数据有效期
func ProvideRegistry(cfg *config.Config, kv repository.KVStore) *session.Registry {
	idle := cfg.Storage.StoreIdleTTL
	if ttl := cfg.Storage.SessionTTL; ttl > 0 && (idle <= 0 || idle > ttl) {
		idle = ttl
	}
	return session.NewRegistry(kv, idle)
}

// ProvideRateLimiter 无 redis 时返回 nil，中间件随之放行
func ProvideRateLimiter(cfg *config.Config, redisClient *redis.Client) middleware.RateLimiter {
	if redisClient == nil || !cfg.Security.RateLimit.Enabled {
		return nil
	}
	return redis.NewRateLimiter(redisClient)
}

// ProvidePublisher 校验事件流，未启用时返回 nil 接口
func ProvidePublisher(cfg *config.Config, redisClient *redis.Client) refine.Publisher {
	if redisClient == nil || !cfg.Messaging.RedisStream.Enabled {
		return nil
	}
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideScriptwriter 按配置选择脚本服务后端
func ProvideScriptwriter(cfg *config.Config) (service.Scriptwriter, error) {
	switch cfg.Scriptwriter.Backend {
	case config.ScriptwriterBackendHTTP, "":
		if cfg.Scriptwriter.BaseURL == "" {
			return nil, fmt.Errorf("scriptwriter.base_url is required for the http backend")
		}
		return scriptsvc.NewClient(&cfg.Scriptwriter), nil
	case config.ScriptwriterBackendLLM:
		factory := llm.NewModelFactory(&cfg.LLM)
		return llm.NewScriptwriter(factory, cfg.Scriptwriter.Provider, cfg.Scriptwriter.GenerateTimeout), nil
	default:
		return nil, fmt.Errorf("unknown scriptwriter backend %q", cfg.Scriptwriter.Backend)
	}
}

// ProvideSynthesizer 按配置选择语音合成后端
func ProvideSynthesizer(cfg *config.Config) (service.Synthesizer, error) {
	switch cfg.TTS.Backend {
	case config.TTSBackendPlaceholder, "":
		return tts.Placeholder{}, nil
	case config.TTSBackendHTTP:
		if cfg.TTS.BaseURL == "" {
			return nil, fmt.Errorf("tts.base_url is required for the http backend")
		}
		return tts.NewClient(&cfg.TTS), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.TTS.Backend)
	}
}

// ProvideVersionOptions 版本历史选项
func ProvideVersionOptions(cfg *config.Config) versions.Options {
	return versions.Options{MaxHistory: cfg.Versions.MaxHistory}
}

// ProvideRefineOptions 精修流程选项
func ProvideRefineOptions(cfg *config.Config, vopts versions.Options) refine.Options {
	return refine.Options{
		MaxRetries:     cfg.Refine.MaxRetries,
		RetryBackoff:   cfg.Refine.RetryBackoff,
		TruncateLength: cfg.Feedback.TruncateLength,
		Versions:       vopts,
	}
}

// ProvideJWTManager 会话令牌
func ProvideJWTManager(cfg *config.Config) *utils.JWTManager {
	return utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, cfg.Security.JWT.Expiration)
}

// ProvideRefineHandler 精修处理器
func ProvideRefineHandler(svc *refine.Service, cfg *config.Config) *handler.RefineHandler {
	return handler.NewRefineHandler(svc, cfg.Feedback.TruncateLength)
}
