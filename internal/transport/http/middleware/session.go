package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-gin-idea-board/internal/nav"
)

const CtxSessionID = "sid"

type SessionOpts struct {
	CookieName string
	MaxAgeSec  int
	Secure     bool
}

// Session 保证每个访客有一个 session id cookie
func Session(o SessionOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(o.CookieName)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(o.CookieName, sid, o.MaxAgeSec, "/", "", o.Secure, true)
		}
		c.Set(CtxSessionID, sid)
		c.Next()
	}
}

func SessionID(c *gin.Context) string { return c.GetString(CtxSessionID) }

// TrackNavigation 页面渲染成功后记下当前地址，供下一页计算返回链接
func TrackNavigation(t *nav.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method != http.MethodGet || c.Writer.Status() != http.StatusOK {
			return
		}
		_ = t.Record(c.Request.Context(), SessionID(c), c.Request.URL.RequestURI())
	}
}
