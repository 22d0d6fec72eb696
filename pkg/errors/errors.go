// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 会话错误 (2xxx)
	CodeSessionInvalid ErrorCode = "2001"

	// 资源错误 (3xxx)
	CodeScriptNotFound  ErrorCode = "3001"
	CodeVersionNotFound ErrorCode = "3002"
	CodeAudioNotFound   ErrorCode = "3003"

	// 输入错误 (4xxx)，在任何网络调用前本地拒绝
	CodeNoSelection          ErrorCode = "4001"
	CodeEmptyInstruction     ErrorCode = "4002"
	CodeEmptyScript          ErrorCode = "4003"
	CodeSelectionOutOfRange  ErrorCode = "4004"
	CodeMissingFormField     ErrorCode = "4005"
	CodeConfirmationRequired ErrorCode = "4006"
	CodeOperationInProgress  ErrorCode = "4007"
	CodeAudioParamOutOfRange ErrorCode = "4008"
	CodeInvalidAdLength      ErrorCode = "4009"

	// 上游服务错误 (5xxx)
	CodeUpstreamTimeout     ErrorCode = "5001"
	CodeUpstreamUnavailable ErrorCode = "5002"
	CodeUpstreamError       ErrorCode = "5003"
	CodeMalformedResponse   ErrorCode = "5004"
	CodeStorageError        ErrorCode = "5005"
	CodeLLMCallFailed       ErrorCode = "5006"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`

	// UpstreamStatus 上游返回的 HTTP 状态码，仅 CodeUpstreamError 使用
	UpstreamStatus int `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is 与预定义错误匹配
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Retryable 上游瞬时故障可由用户手动重试
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeUpstreamTimeout, CodeUpstreamUnavailable, CodeUpstreamError, CodeMalformedResponse, CodeLLMCallFailed:
		return true
	}
	return false
}

// Transient 上游瞬时故障，可自动重试：超时、不可达、5xx
func (e *AppError) Transient() bool {
	switch e.Code {
	case CodeUpstreamTimeout, CodeUpstreamUnavailable, CodeLLMCallFailed:
		return true
	case CodeUpstreamError:
		return e.UpstreamStatus == 0 || e.UpstreamStatus >= 500
	}
	return false
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeNoSelection, CodeEmptyInstruction, CodeEmptyScript,
		CodeSelectionOutOfRange, CodeMissingFormField, CodeAudioParamOutOfRange,
		CodeInvalidAdLength:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeSessionInvalid:
		return http.StatusUnauthorized
	case CodeNotFound, CodeScriptNotFound, CodeVersionNotFound, CodeAudioNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeConfirmationRequired, CodeOperationInProgress:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case CodeUpstreamUnavailable, CodeUpstreamError, CodeMalformedResponse, CodeLLMCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrScriptNotFound  = New(CodeScriptNotFound, "no script in session")
	ErrVersionNotFound = New(CodeVersionNotFound, "script version not found")
	ErrAudioNotFound   = New(CodeAudioNotFound, "audio version not found")

	ErrNoSelection          = New(CodeNoSelection, "please select the sentences to be refined")
	ErrEmptyInstruction     = New(CodeEmptyInstruction, "please tell us what kind of change you want to make")
	ErrEmptyScript          = New(CodeEmptyScript, "script is empty")
	ErrSelectionOutOfRange  = New(CodeSelectionOutOfRange, "selected sentence is outside the script")
	ErrConfirmationRequired = New(CodeConfirmationRequired, "unsaved changes would be lost, confirmation required")
	ErrOperationInProgress  = New(CodeOperationInProgress, "another script operation is already running for this session")
	ErrMissingFormField     = New(CodeMissingFormField, "please fill in all required fields")
	ErrAudioParamOutOfRange = New(CodeAudioParamOutOfRange, "speed and pitch must be between 0.5 and 2.0")
	ErrInvalidAdLength      = New(CodeInvalidAdLength, "invalid ad length")

	ErrUpstreamTimeout     = New(CodeUpstreamTimeout, "request timed out")
	ErrUpstreamUnavailable = New(CodeUpstreamUnavailable, "service unreachable")
	ErrUpstreamError       = New(CodeUpstreamError, "backend error")
	ErrMalformedResponse   = New(CodeMalformedResponse, "invalid response from backend")
	ErrLLMCallFailed       = New(CodeLLMCallFailed, "LLM call failed")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// UpstreamStatusError 上游返回非 2xx
func UpstreamStatusError(status int, detail string) *AppError {
	e := ErrUpstreamError.WithDetail(detail)
	e.UpstreamStatus = status
	return e
}

// IsTransient 判断错误链中是否为可自动重试的上游故障
func IsTransient(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Transient()
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}
