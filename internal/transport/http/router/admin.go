package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-gin-idea-board/internal/core/server"
	mdw "go-gin-idea-board/internal/transport/http/middleware"
)

func NewAdminEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, d.Env)

	r.Use(
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300, 2*time.Second),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(d.timeout()),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	// 健康检查 + 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.JWT, d.Users, true), mdw.RequireRole("admin"))

	reg := &Registry{}
	reg.Register(&adminModule{users: d.Users, ideas: d.Ideas})
	reg.MountAllAdmin(admin)
	return r
}
