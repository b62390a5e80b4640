package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-gin-idea-board/internal/core/server"
	mdw "go-gin-idea-board/internal/transport/http/middleware"
)

func NewAPIEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, d.Env)

	// 中间件
	r.Use(
		mdw.RateLimit(200, 400),
		mdw.RateLimitPerIP(20, 40, 10*time.Minute),
		mdw.ConcurrencyLimit(300, 2*time.Second),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(d.timeout()),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
		mdw.Session(d.Session),
		mdw.AuthJWT(d.JWT, d.Users, false),
	)

	// 健康检查 + 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reg := &Registry{}
	reg.Register(
		&authModule{users: d.Users},
		&ideaModule{ideas: d.Ideas, sessions: d.Sessions, tracker: d.Tracker, bus: d.Bus},
		&commentModule{comments: d.Comments},
		&voteModule{votes: d.Votes},
		&catalogModule{catalog: d.Catalog},
	)
	reg.MountAllAPI(&r.RouterGroup)
	return r
}
