package router

import (
	"time"

	"go.uber.org/zap"

	"go-gin-idea-board/internal/core/auth"
	"go-gin-idea-board/internal/core/events"
	"go-gin-idea-board/internal/core/session"
	"go-gin-idea-board/internal/nav"
	"go-gin-idea-board/internal/service"
	mdw "go-gin-idea-board/internal/transport/http/middleware"
)

// Deps 两个 engine 共用的依赖
type Deps struct {
	Log      *zap.Logger
	Env      string
	JWT      *auth.JWTer
	Users    *service.UserService
	Ideas    *service.IdeaService
	Comments *service.CommentService
	Votes    *service.VoteService
	Catalog  *service.CatalogService
	Sessions session.Store
	Tracker  *nav.Tracker
	Bus      events.Bus
	Session  mdw.SessionOpts
	// Timeout 单请求超时，0 用默认 10s
	Timeout time.Duration
}

func (d Deps) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return 10 * time.Second
}
