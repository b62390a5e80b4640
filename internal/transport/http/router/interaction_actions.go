package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-idea-board/internal/core/events"
	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/service"
	"go-gin-idea-board/internal/transport/http/ez"
)

// 局部刷新的交互：投票、评论

type voteModule struct {
	votes *service.VoteService
}

func (m *voteModule) MountAPI(g *gin.RouterGroup) {
	ez.RegisterAction(ez.New(g), ez.Action[struct{}, *service.VoteResult]{
		Method: http.MethodPost,
		Path:   "/ideas/:slug/vote",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*service.VoteResult, error) {
			return m.votes.Toggle(c.Request.Context(), ez.CurrentUser(c), c.Param("slug"))
		},
	})
}

type commentModule struct {
	comments *service.CommentService
}

type commentOut struct {
	Comment *domain.Comment `json:"comment"`
	Event   string          `json:"event"`
}

func (m *commentModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[service.CommentInput, commentOut]{
		Method: http.MethodPost,
		Path:   "/ideas/:slug/comments",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.CommentInput) (commentOut, error) {
			cm, err := m.comments.Create(c.Request.Context(), ez.CurrentUser(c), c.Param("slug"), *in)
			if err != nil {
				return commentOut{}, err
			}
			return commentOut{Comment: cm, Event: events.CommentWasAdded}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[service.CommentInput, commentOut]{
		Method: http.MethodPut,
		Path:   "/comments/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.CommentInput) (commentOut, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return commentOut{}, err
			}
			cm, err := m.comments.Update(c.Request.Context(), ez.CurrentUser(c), id, *in)
			if err != nil {
				return commentOut{}, err
			}
			return commentOut{Comment: cm, Event: events.CommentWasUpdated}, nil
		},
	})
}

type catalogModule struct {
	catalog *service.CatalogService
}

func (m *catalogModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Category]{
		Method: http.MethodGet,
		Path:   "/categories",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Category, error) {
			return m.catalog.Categories(c.Request.Context())
		},
	})

	// 带每个状态下的想法数
	ez.RegisterAction(e, ez.Action[struct{}, []service.StatusTab]{
		Method: http.MethodGet,
		Path:   "/statuses",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.StatusTab, error) {
			return m.catalog.StatusTabs(c.Request.Context())
		},
	})
}
