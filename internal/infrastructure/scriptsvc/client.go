package scriptsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"ad-studio-api/internal/config"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/domain/service"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/metrics"
	"ad-studio-api/pkg/tracer"

	"go.opentelemetry.io/otel/attribute"
)

const (
	serviceName     = "scriptwriter"
	maxResponseSize = 8 << 20
	maxDetailLength = 512
)

var _ service.Scriptwriter = (*Client)(nil)

// Client 外部脚本服务 HTTP 客户端
type Client struct {
	baseURL           string
	generateTimeout   time.Duration
	refineTimeout     time.Duration
	connectionTimeout time.Duration
	httpClient        *http.Client
}

type generateRequest struct {
	ProductName      string `json:"product_name"`
	TargetAudience   string `json:"target_audience"`
	KeySellingPoints string `json:"key_selling_points"`
	Tone             string `json:"tone"`
	AdLength         int    `json:"ad_length"`
	SpeakerVoice     string `json:"speaker_voice"`
}

type generateResponse struct {
	Success *bool           `json:"success"`
	Script  json.RawMessage `json:"script"`
}

// NewClient 创建客户端，超时由每次调用的 context 控制
func NewClient(cfg *config.ScriptwriterConfig) *Client {
	c := &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		generateTimeout:   cfg.GenerateTimeout,
		refineTimeout:     cfg.RefineTimeout,
		connectionTimeout: cfg.ConnectionTimeout,
		httpClient:        &http.Client{},
	}
	if c.generateTimeout <= 0 {
		c.generateTimeout = 120 * time.Second
	}
	if c.refineTimeout <= 0 {
		c.refineTimeout = 60 * time.Second
	}
	if c.connectionTimeout <= 0 {
		c.connectionTimeout = 5 * time.Second
	}
	return c
}

// GenerateScript 调用 POST /generate_script
func (c *Client) GenerateScript(ctx context.Context, meta entity.AdMetadata) (entity.Script, error) {
	body, err := c.do(ctx, "generate", http.MethodPost, "/generate_script", &generateRequest{
		ProductName:      meta.ProductName,
		TargetAudience:   meta.TargetAudience,
		KeySellingPoints: meta.KeySellingPoints,
		Tone:             meta.Tone,
		AdLength:         meta.AdLength.Seconds(),
		SpeakerVoice:     meta.SpeakerVoice,
	}, c.generateTimeout)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, malformed("generation response is not a JSON object: %v", err)
	}
	if resp.Success != nil && !*resp.Success {
		return nil, apperrors.ErrUpstreamError.WithDetail("generation service reported failure")
	}
	return NormalizeScript(resp.Script)
}

// RefineScript 调用 POST /regenerate_script
func (c *Client) RefineScript(ctx context.Context, req *entity.RefinementRequest) (*entity.RefinementResponse, error) {
	body, err := c.do(ctx, "refine", http.MethodPost, "/regenerate_script", req, c.refineTimeout)
	if err != nil {
		return nil, err
	}
	return NormalizeRefinement(body)
}

// Ping 调用 GET /test_connection
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "test_connection", http.MethodGet, "/test_connection", nil, c.connectionTimeout)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any, timeout time.Duration) (body []byte, err error) {
	ctx, span := tracer.Start(ctx, "scriptsvc."+op)
	span.SetAttributes(attribute.String("http.method", method), attribute.String("upstream.path", path))
	start := time.Now()
	defer func() {
		metrics.UpstreamCallDuration.WithLabelValues(serviceName, op).Observe(time.Since(start).Seconds())
		metrics.UpstreamCallTotal.WithLabelValues(serviceName, op, statusLabel(err)).Inc()
		tracer.End(span, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	defer httpResp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, classify(err)
	}
	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, apperrors.UpstreamStatusError(httpResp.StatusCode,
			fmt.Sprintf("status %d: %s", httpResp.StatusCode, errorDetail(body)))
	}
	return body, nil
}

// classify 把传输层错误归类为超时或不可达
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrUpstreamTimeout.WithError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.ErrUpstreamTimeout.WithError(err)
	}
	return apperrors.ErrUpstreamUnavailable.WithError(err)
}

// errorDetail 提取 {"detail": ...} 或截断后的原始响应
func errorDetail(body []byte) string {
	var env struct {
		Detail any `json:"detail"`
		Error  any `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		for _, v := range []any{env.Detail, env.Error} {
			switch d := v.(type) {
			case nil:
			case string:
				return truncateDetail(d)
			default:
				if raw, err := json.Marshal(d); err == nil {
					return truncateDetail(string(raw))
				}
			}
		}
	}
	return truncateDetail(strings.TrimSpace(string(body)))
}

// truncateDetail 按字节上限截断，切点落在 rune 边界上
func truncateDetail(text string) string {
	if len(text) <= maxDetailLength {
		return text
	}
	cut := maxDetailLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr := apperrors.AsAppError(err); appErr != nil {
		return string(appErr.Code)
	}
	return "error"
}
