package apperr

import (
	"errors"
	"fmt"
)

// Kind 业务错误类别
type Kind string

const (
	KindNotFound     Kind = "not_found"     // 资源不存在
	KindForbidden    Kind = "forbidden"     // 权限不足
	KindInvalidState Kind = "invalid_state" // 状态不允许该操作
	KindValidation   Kind = "validation"    // 请求参数非法
)

// Error 业务错误
// 四类业务错误统一结构: 类别 + 字段 + 可读消息,原样透传给调用方
type Error struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"`   // 出错字段(Forbidden/Validation)
	Message string `json:"message"`           // 可读错误消息
	Status  string `json:"status,omitempty"`  // 冲突状态(InvalidState)
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NotFound 资源不存在错误
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Forbidden 权限错误,始终携带字段和原因
func Forbidden(field, message string) *Error {
	return &Error{Kind: KindForbidden, Field: field, Message: message}
}

// InvalidState 状态冲突错误,携带当前冲突状态
func InvalidState(status, message string) *Error {
	return &Error{Kind: KindInvalidState, Status: status, Message: message}
}

// Validation 参数校验错误
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// IsKind 判断错误是否为指定类别
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// AsError 提取业务错误
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
