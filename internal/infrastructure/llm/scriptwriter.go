package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/domain/service"
	"ad-studio-api/internal/infrastructure/scriptsvc"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/logger"
	"ad-studio-api/pkg/metrics"
	"ad-studio-api/pkg/tracer"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
)

var _ service.Scriptwriter = (*Scriptwriter)(nil)

// Scriptwriter 直接驱动 ChatModel 生成与改写脚本
//
// 模型输出经过与 HTTP 后端相同的规范化流程。
type Scriptwriter struct {
	factory  *ModelFactory
	provider string
	timeout  time.Duration
}

// NewScriptwriter 创建 LLM 后端，provider 为空时使用默认提供商
func NewScriptwriter(factory *ModelFactory, provider string, timeout time.Duration) *Scriptwriter {
	return &Scriptwriter{factory: factory, provider: factory.Resolve(provider), timeout: timeout}
}

// GenerateScript 生成完整脚本
func (w *Scriptwriter) GenerateScript(ctx context.Context, meta entity.AdMetadata) (entity.Script, error) {
	content, err := w.invoke(ctx, "generate", generateSystemPrompt, generateUserPrompt(meta))
	if err != nil {
		return nil, err
	}

	payload := extractJSON(content)
	if payload == "" {
		raw, _ := json.Marshal(content)
		return scriptsvc.NormalizeScript(raw)
	}
	if strings.HasPrefix(payload, "[") {
		return scriptsvc.NormalizeScript(json.RawMessage(payload))
	}
	var env struct {
		Script json.RawMessage `json:"script"`
	}
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, apperrors.ErrMalformedResponse.WithDetail("model output is not a script object")
	}
	return scriptsvc.NormalizeScript(env.Script)
}

// RefineScript 改写选中的行，模型输出不是 JSON 时按带标记的完整脚本文本处理
func (w *Scriptwriter) RefineScript(ctx context.Context, req *entity.RefinementRequest) (*entity.RefinementResponse, error) {
	content, err := w.invoke(ctx, "refine", refineSystemPrompt, refineUserPrompt(req))
	if err != nil {
		return nil, err
	}

	payload := extractJSON(content)
	switch {
	case payload == "":
		// 带标记的纯文本，逐行按 "line | artDirection" 解析
		raw, _ := json.Marshal(map[string]string{"data": content})
		return scriptsvc.NormalizeRefinement(raw)
	case strings.HasPrefix(payload, "["):
		// 行数组视为完整候选脚本
		return scriptsvc.NormalizeRefinement([]byte(`{"data":` + payload + `}`))
	}
	return scriptsvc.NormalizeRefinement([]byte(payload))
}

// Ping 确认提供商配置可用
func (w *Scriptwriter) Ping(ctx context.Context) error {
	if _, err := w.factory.Get(ctx, w.provider); err != nil {
		return apperrors.ErrLLMCallFailed.WithError(err)
	}
	return nil
}

func (w *Scriptwriter) invoke(ctx context.Context, op, system, user string) (content string, err error) {
	ctx, span := tracer.Start(ctx, "llm."+op)
	span.SetAttributes(attribute.String("llm.provider", w.provider))
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.LLMCallTotal.WithLabelValues(w.provider, op, status).Inc()
		metrics.UpstreamCallDuration.WithLabelValues("llm", op).Observe(time.Since(start).Seconds())
		tracer.End(span, err)
	}()

	chatModel, err := w.factory.Get(ctx, w.provider)
	if err != nil {
		return "", apperrors.ErrLLMCallFailed.WithError(err)
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	msgs := []*schema.Message{schema.SystemMessage(system), schema.UserMessage(user)}
	out, err := chatModel.Generate(ctx, msgs, jsonMode())
	if err != nil && isResponseFormatUnsupported(err) {
		logger.Warn(ctx, "llm json mode not supported, fallback to prompt-only",
			"provider", w.provider,
			"error", err.Error(),
		)
		out, err = chatModel.Generate(ctx, msgs)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.ErrUpstreamTimeout.WithError(err)
		}
		return "", apperrors.ErrLLMCallFailed.WithError(err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", apperrors.ErrMalformedResponse.WithDetail("empty model output")
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(w.provider, "prompt").Add(float64(out.ResponseMeta.Usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(w.provider, "completion").Add(float64(out.ResponseMeta.Usage.CompletionTokens))
	}
	return out.Content, nil
}

func jsonMode() model.Option {
	return openai.WithExtraFields(map[string]any{
		"response_format": map[string]any{"type": "json_object"},
	})
}
