package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// ValidationEvent 一次精修的校验结果，供离线审计
type ValidationEvent struct {
	SessionID         string                     `json:"session_id"`
	RequestID         string                     `json:"request_id,omitempty"`
	Instruction       string                     `json:"instruction"`
	SelectedSentences []int                      `json:"selected_sentences"`
	Validation        *entity.ValidationMetadata `json:"validation"`
	Attempts          int                        `json:"attempts"`
}

// Producer 消息生产者
type Producer struct {
	client redis.UniversalClient
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client redis.UniversalClient, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		metrics.RedisStreamPublished.WithLabelValues(string(stream), "error").Inc()
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.RedisStreamPublished.WithLabelValues(string(stream), "ok").Inc()
	span.SetAttributes(attribute.String("stream.message_id", id))
	return id, nil
}

// PublishValidation 发布精修校验事件
func (p *Producer) PublishValidation(ctx context.Context, ev *ValidationEvent) (string, error) {
	msg, err := NewMessage(uuid.NewString(), "refine_validation", ev.SessionID, ev)
	if err != nil {
		return "", err
	}
	if ev.Validation != nil {
		msg.SetMetadata("had_unauthorized_changes", strconv.FormatBool(ev.Validation.HadUnauthorizedChanges))
		msg.SetMetadata("reverted", strconv.Itoa(len(ev.Validation.RevertedChanges)))
	}
	return p.Publish(ctx, StreamRefineValidation, msg)
}
