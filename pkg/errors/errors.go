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
	CodeNotFound           ErrorCode = "1004"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"
	CodeServerBusy         ErrorCode = "1009"

	// 流水线错误 (4xxx)
	CodeValidationFailed ErrorCode = "4002"
	CodeContentFormat    ErrorCode = "4010"

	// 外部依赖错误 (5xxx)
	CodePersistence       ErrorCode = "5001"
	CodeTranscription     ErrorCode = "5002"
	CodeVectorSearch      ErrorCode = "5003"
	CodeLLMCallFailed     ErrorCode = "5005"
	CodeEmbeddingFailed   ErrorCode = "5006"
	CodeAudioProcessing   ErrorCode = "5007"
	CodeMessagingFailed   ErrorCode = "5008"
	CodeExportFailed      ErrorCode = "5009"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
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

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误，底层错误信息保留在 Detail 中
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
	if err != nil {
		appErr.Detail = err.Error()
	}
	return appErr
}

// Validation 输入校验失败（在任何外部调用之前拒绝）
func Validation(message string) *AppError {
	return New(CodeValidationFailed, message)
}

// Upstream 外部能力调用失败（转写、生成、向量化、检索）
func Upstream(err error, code ErrorCode, message string) *AppError {
	return Wrap(err, code, message)
}

// ContentFormat 生成内容不满足输出契约
func ContentFormat(err error, message string) *AppError {
	return Wrap(err, CodeContentFormat, message)
}

// Persistence 存储读写失败
func Persistence(err error, message string) *AppError {
	return Wrap(err, CodePersistence, message)
}

// NotFound 资源不存在
func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeServerBusy:
		return http.StatusServiceUnavailable
	case CodePersistence, CodeTranscription, CodeVectorSearch, CodeLLMCallFailed,
		CodeEmbeddingFailed, CodeMessagingFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

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

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// IsValidation 是否为输入校验错误
func IsValidation(err error) bool {
	return HasCode(err, CodeValidationFailed) || HasCode(err, CodeInvalidParam)
}

// IsUpstream 是否为外部能力调用错误
func IsUpstream(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case CodeTranscription, CodeVectorSearch, CodeLLMCallFailed, CodeEmbeddingFailed:
		return true
	}
	return false
}

// IsNotFound 是否为资源不存在
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
