package tts

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

	"ad-studio-api/internal/config"
	"ad-studio-api/internal/domain/service"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/metrics"
	"ad-studio-api/pkg/tracer"
)

var _ service.Synthesizer = (*Client)(nil)

type synthesizeResponse struct {
	AudioURL      string `json:"audioUrl"`
	AudioURLSnake string `json:"audio_url"`
}

// Client 外部 TTS 服务客户端，POST {base_url}/synthesize
type Client struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient 创建 TTS 客户端
func NewClient(cfg *config.TTSConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/synthesize",
		apiKey:     cfg.APIKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Synthesize 合成音频并返回地址
func (c *Client) Synthesize(ctx context.Context, req service.SynthesisRequest) (url string, err error) {
	ctx, span := tracer.Start(ctx, "tts.synthesize")
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = string(apperrors.AsAppError(err).Code)
		}
		metrics.UpstreamCallDuration.WithLabelValues("tts", "synthesize").Observe(time.Since(start).Seconds())
		metrics.UpstreamCallTotal.WithLabelValues("tts", "synthesize", status).Inc()
		tracer.End(span, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(&req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal synthesis request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return "", transportError(err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return "", apperrors.UpstreamStatusError(httpResp.StatusCode,
			fmt.Sprintf("status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var resp synthesizeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", apperrors.ErrMalformedResponse.WithDetail("synthesis response is not JSON")
	}
	url = resp.AudioURL
	if url == "" {
		url = resp.AudioURLSnake
	}
	if url == "" {
		return "", apperrors.ErrMalformedResponse.WithDetail("synthesis response has no audio url")
	}
	return url, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.ErrUpstreamTimeout.WithError(err)
	}
	return apperrors.ErrUpstreamUnavailable.WithError(err)
}
