package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-gin-idea-board/internal/transport/http/ez"
	resp "go-gin-idea-board/internal/transport/http/response"
)

// Timeout 给请求 ctx 加超时；SSE 长连接不受限
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isEventStream(c) {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			ez.Fail(c, &ez.AErr{Code: resp.CodeTimeout, Msg: "timeout"})
		}
	}
}

func isEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}
