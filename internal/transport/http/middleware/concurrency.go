package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"go-gin-idea-board/internal/transport/http/ez"
	resp "go-gin-idea-board/internal/transport/http/response"
)

// ConcurrencyLimit 同时处理的请求数上限，排队最多 wait；SSE 长连接不占名额
func ConcurrencyLimit(max int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if isEventStream(c) {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		if wait > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, wait)
			defer cancel()
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			ez.Fail(c, &ez.AErr{Code: resp.CodeUnavailable, Msg: "server busy"})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
