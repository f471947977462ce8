package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IdentityMiddleware 调用方身份中间件
// 网关在入口完成认证后通过 X-User-ID 传递调用方身份,缺失即拒绝
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			Error(c, http.StatusUnauthorized, "missing caller identity", "X-User-ID header is required")
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// CallerID 当前请求的调用方用户 ID
func CallerID(c *gin.Context) string {
	return c.GetString("user_id")
}
