package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/koalacodee/taskflow-gin/internal/apperr"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// statusForKind 业务错误类别到 HTTP 状态码的映射
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError 将服务层错误转换为 HTTP 响应
// 业务错误按类别映射状态码并透传字段/状态详情,其余错误一律 500
func HandleServiceError(c *gin.Context, err error) {
	if e, ok := apperr.AsError(err); ok {
		detail := e.Field
		if e.Status != "" {
			detail = "current status: " + e.Status
		}
		Error(c, statusForKind(e.Kind), e.Message, detail)
		return
	}
	Error(c, http.StatusInternalServerError, "internal server error", err.Error())
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
				return
			}
			var bizErr *apperr.Error
			if errors.As(err, &bizErr) {
				HandleServiceError(c, bizErr)
				return
			}
			Error(c, http.StatusInternalServerError, "internal server error", err.Error())
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}
