package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-idea-board/internal/transport/http/ez"
	resp "go-gin-idea-board/internal/transport/http/response"
)

// MaxBodyBytes 声明长度超限直接 413；未声明长度的在读取时截断，由 ez 绑定映射成 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			ez.Fail(c, &ez.AErr{Code: resp.CodeTooLarge, Msg: "request body too large"})
			return
		}
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
