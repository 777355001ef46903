package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// StoreDeadline 给请求上下文加上截止时间；连接池耗尽时数据库调用会在截止后返回错误，
// 由处理函数按 500 输出，而不是无限期挂起
func StoreDeadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
