// Package llm 基于 Eino ChatModel 的脚本生成/改写后端
package llm

import (
	"context"
	"fmt"
	"sync"

	"ad-studio-api/internal/config"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ModelBuilder 根据提供商配置创建 ChatModel
type ModelBuilder func(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error)

// ModelFactory 按提供商名称惰性创建并缓存 ChatModel
type ModelFactory struct {
	cfg    *config.LLMConfig
	build  ModelBuilder
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewModelFactory 创建使用 OpenAI 兼容接口的工厂
func NewModelFactory(cfg *config.LLMConfig) *ModelFactory {
	return NewModelFactoryWithBuilder(cfg, newOpenAIModel)
}

// NewModelFactoryWithBuilder 自定义 ChatModel 构造方式
func NewModelFactoryWithBuilder(cfg *config.LLMConfig, build ModelBuilder) *ModelFactory {
	return &ModelFactory{
		cfg:    cfg,
		build:  build,
		models: make(map[string]model.BaseChatModel),
	}
}

// Resolve 空名称解析为默认提供商
func (f *ModelFactory) Resolve(name string) string {
	if name == "" {
		return f.cfg.DefaultProvider
	}
	return name
}

// Get 获取指定提供商的 ChatModel
func (f *ModelFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name = f.Resolve(name)

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found in llm config", name)
	}
	m, err := f.build(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", name, err)
	}
	f.models[name] = m
	return m, nil
}

func newOpenAIModel(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error) {
	mc := &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	if cfg.Temperature > 0 {
		temp := float32(cfg.Temperature)
		mc.Temperature = &temp
	}
	cm, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, err
	}
	return cm, nil
}
