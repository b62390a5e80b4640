package router

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-idea-board/internal/core/events"
	"go-gin-idea-board/internal/core/session"
	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/nav"
	"go-gin-idea-board/internal/service"
	"go-gin-idea-board/internal/transport/http/ez"
	mdw "go-gin-idea-board/internal/transport/http/middleware"
)

// ideaModule 列表、详情（页面）与新建、删除（命令）
type ideaModule struct {
	ideas    *service.IdeaService
	sessions session.Store
	tracker  *nav.Tracker
	bus      events.Bus
}

type listQ struct {
	Category string `form:"category"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
}

type listOut struct {
	*service.IdeaPage
	Flash string `json:"flash,omitempty"`
}

type redirectOut struct {
	Redirect string       `json:"redirect"`
	Slug     string       `json:"slug,omitempty"`
	Idea     *domain.Idea `json:"idea,omitempty"`
}

func (m *ideaModule) MountAPI(g *gin.RouterGroup) {
	// 页面：渲染成功后记录地址，供“返回”使用
	pages := ez.New(g.Group("", mdw.TrackNavigation(m.tracker)))
	e := ez.New(g)

	ez.RegisterAction(pages, ez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			ctx := c.Request.Context()
			page, err := m.ideas.List(ctx, service.ListQuery{
				Category: in.Category, Status: in.Status, Page: in.Page,
				Viewer: ez.CurrentUser(c),
			})
			if err != nil {
				return listOut{}, err
			}
			flash, _ := m.sessions.Pull(ctx, mdw.SessionID(c), session.KeyFlash)
			return listOut{IdeaPage: page, Flash: flash}, nil
		},
	})

	ez.RegisterAction(pages, ez.Action[struct{}, *service.IdeaDetail]{
		Method: http.MethodGet,
		Path:   "/ideas/:slug",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*service.IdeaDetail, error) {
			ctx := c.Request.Context()
			return m.ideas.Show(ctx, service.ShowQuery{
				Slug:         c.Param("slug"),
				CommentsPage: ez.QueryPage(c),
				Viewer:       ez.CurrentUser(c),
				PreviousURL:  m.tracker.Previous(ctx, mdw.SessionID(c)),
			})
		},
	})

	g.GET("/ideas/:slug/events", m.stream)

	ez.RegisterAction(e, ez.Action[service.CreateIdeaInput, redirectOut]{
		Method: http.MethodPost,
		Path:   "/ideas",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.CreateIdeaInput) (redirectOut, error) {
			ctx := c.Request.Context()
			idea, err := m.ideas.Create(ctx, ez.CurrentUser(c), *in)
			if err != nil {
				return redirectOut{}, err
			}
			_ = m.sessions.Set(ctx, mdw.SessionID(c), session.KeyFlash, service.FlashIdeaCreated)
			return redirectOut{Redirect: nav.ListRoute, Slug: idea.Slug, Idea: idea}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, redirectOut]{
		Method: http.MethodDelete,
		Path:   "/ideas/:slug",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (redirectOut, error) {
			if err := m.ideas.Delete(c.Request.Context(), ez.CurrentUser(c), c.Param("slug")); err != nil {
				return redirectOut{}, err
			}
			return redirectOut{Redirect: nav.ListRoute}, nil
		},
	})
}

// stream SSE：推送该想法下评论的新增/编辑事件
func (m *ideaModule) stream(c *gin.Context) {
	ctx := c.Request.Context()
	idea, err := m.ideas.Resolve(ctx, c.Param("slug"))
	if err != nil {
		ez.Fail(c, err)
		return
	}
	ch, cancel := m.bus.Subscribe(ctx, idea.ID)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		select {
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(e.Name, e)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
