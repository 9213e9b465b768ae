package apierrors

import (
	"errors"
	"fmt"
)

// Code 表示统一业务错误码，仅用于日志与指标，不出现在响应 envelope 中。
type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeMissingField      Code = "MISSING_FIELD"
	CodeInvalidEncoding   Code = "INVALID_ENCODING"
	CodeInvalidLength     Code = "INVALID_LENGTH"
	CodeInvalidKey        Code = "INVALID_KEY"
	CodeInstructionFailed Code = "INSTRUCTION_FAILED"
	CodeInternal          Code = "INTERNAL_ERROR"
)

var httpStatusMap = map[Code]int{
	CodeInvalidArgument:   400,
	CodeMissingField:      400,
	CodeInvalidEncoding:   400,
	CodeInvalidLength:     400,
	CodeInvalidKey:        400,
	CodeInstructionFailed: 400,
}

// Error 表示带统一错误码的业务错误。
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New 创建一个新的业务错误。
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 与 New 相同，但支持格式化消息。
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause 记录底层错误，便于日志排查；不会改变对外消息。
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap 返回底层错误。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// FromError 尝试从通用 error 中解析业务错误。
func FromError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HTTPStatus 返回对应的 HTTP 状态码，未知错误默认 500。
func HTTPStatus(code Code) int {
	if status, ok := httpStatusMap[code]; ok {
		return status
	}
	return 500
}
