package refine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"

	"ad-studio-api/internal/application/feedback"
	"ad-studio-api/internal/application/session"
	"ad-studio-api/internal/application/versions"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/domain/service"
	"ad-studio-api/internal/infrastructure/messaging"
	apperrors "ad-studio-api/pkg/errors"
	"ad-studio-api/pkg/logger"
	"ad-studio-api/pkg/metrics"
	"ad-studio-api/pkg/tracer"
)

// Publisher 校验事件发布
type Publisher interface {
	PublishValidation(ctx context.Context, ev *messaging.ValidationEvent) (string, error)
}

// Options 精修流程选项
type Options struct {
	// MaxRetries 传输错误的自动重试次数，不含首次调用
	MaxRetries     int
	RetryBackoff   time.Duration
	TruncateLength int
	Versions       versions.Options
}

// Input 精修请求，Selection 为 nil 时使用会话中保存的选择
type Input struct {
	Selection   entity.SelectionSet
	Instruction string
}

// Output 精修结果
type Output struct {
	Script     entity.Script              `json:"script"`
	Validation *entity.ValidationMetadata `json:"validation"`
	Version    entity.ScriptVersion       `json:"version"`
	Attempts   int                        `json:"attempts"`
}

// Service 精修流程编排
type Service struct {
	writer    service.Scriptwriter
	publisher Publisher
	opts      Options
}

// NewService 创建精修服务，publisher 可为 nil
func NewService(writer service.Scriptwriter, publisher Publisher, opts Options) *Service {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	return &Service{writer: writer, publisher: publisher, opts: opts}
}

// Refine 改写选中行，校验后持久化
//
// 输入错误与上游错误都不会修改会话中的脚本。
func (s *Service) Refine(ctx context.Context, sess *session.Store, in Input) (out *Output, err error) {
	release, ok := sess.TryLock()
	if !ok {
		return nil, apperrors.ErrOperationInProgress
	}
	defer release()

	script := sess.Script(ctx)
	form, _ := sess.FormData(ctx)
	selection := in.Selection
	if selection == nil {
		selection = sess.Selection(ctx)
	}

	req, err := BuildRefinementRequest(script, selection, in.Instruction, form)
	if err != nil {
		metrics.RefineTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "refine.Refine")
	span.SetAttributes(
		attribute.Int("script.lines", len(script)),
		attribute.IntSlice("refine.selected", req.SelectedSentences),
	)
	defer func() { tracer.End(span, err) }()

	resp, attempts, err := s.call(ctx, req)
	if err != nil {
		metrics.RefineTotal.WithLabelValues("upstream_error").Inc()
		logger.Error(ctx, "refinement call failed", err, "attempts", attempts)
		return nil, err
	}

	result, err := s.validate(ctx, script, selection, resp)
	if err != nil {
		metrics.RefineTotal.WithLabelValues("malformed").Inc()
		logger.Error(ctx, "refinement response rejected", err)
		return nil, apperrors.ErrMalformedResponse.WithDetail(err.Error()).WithError(err)
	}

	// 首次精修前保存原脚本
	history := versions.NewStore(sess, s.opts.Versions)
	history.EnsureInitial(ctx, versions.DescBeforeRefinement)
	sess.SetScript(ctx, result.Script)
	v := history.Snapshot(ctx, result.Script, versions.RefinedDescription(req.ImprovementInstruction))
	feedback.NewReporter(sess, s.opts.TruncateLength).Record(ctx, result.Validation)
	sess.ClearSelection(ctx)

	status := "clean"
	if !result.Validation.Clean() {
		status = "reverted"
		logger.Warn(ctx, "unauthorized changes reverted",
			"reverted", len(result.Validation.RevertedChanges),
			"length_mismatch", result.Validation.HadLengthMismatch,
		)
	}
	metrics.RefineTotal.WithLabelValues(status).Inc()
	metrics.RefineRevertedChanges.Add(float64(len(result.Validation.RevertedChanges)))

	s.publish(ctx, sess.ID(), req, result.Validation, attempts)

	return &Output{
		Script:     result.Script.Clone(),
		Validation: result.Validation,
		Version:    v,
		Attempts:   attempts,
	}, nil
}

// call 调用改写服务，只对瞬时故障做有限次固定间隔重试
func (s *Service) call(ctx context.Context, req *entity.RefinementRequest) (*entity.RefinementResponse, int, error) {
	attempts := 0
	op := func() (*entity.RefinementResponse, error) {
		attempts++
		resp, err := s.writer.RefineScript(ctx, req)
		if err == nil {
			return resp, nil
		}
		if apperrors.IsTransient(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.opts.RetryBackoff)),
		backoff.WithMaxTries(uint(s.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.RefineRetries.Inc()
			logger.Warn(ctx, "refinement call failed, retrying", "attempt", attempts, "next", next.String(), "error", err.Error())
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return nil, attempts, err
	}
	return resp, attempts, nil
}

func (s *Service) validate(ctx context.Context, script entity.Script, selection entity.SelectionSet, resp *entity.RefinementResponse) (result *Result, err error) {
	_, span := tracer.Start(ctx, "refine.Validate")
	defer func() { tracer.End(span, err) }()

	result, err = Validate(script, selection, resp)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("refine.reverted", len(result.Validation.RevertedChanges)),
		attribute.Bool("refine.length_mismatch", result.Validation.HadLengthMismatch),
	)
	return result, nil
}

func (s *Service) publish(ctx context.Context, sessionID string, req *entity.RefinementRequest, meta *entity.ValidationMetadata, attempts int) {
	if s.publisher == nil {
		return
	}
	_, err := s.publisher.PublishValidation(ctx, &messaging.ValidationEvent{
		SessionID:         sessionID,
		RequestID:         logger.RequestID(ctx),
		Instruction:       req.ImprovementInstruction,
		SelectedSentences: req.SelectedSentences,
		Validation:        meta,
		Attempts:          attempts,
	})
	if err != nil {
		logger.Warn(ctx, "failed to publish validation event", "error", err.Error())
	}
}
