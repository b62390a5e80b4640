package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-gin-idea-board/internal/service"
	"go-gin-idea-board/internal/transport/http/ez"
)

// adminModule 用户管理 + 想法状态变更
type adminModule struct {
	users *service.UserService
	ideas *service.IdeaService
}

type userListQ struct {
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"` // 按 email/name 模糊搜
}

type userRow struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type userListOut struct {
	Total int64     `json:"total"`
	Items []userRow `json:"items"`
}

type setAdminIn struct {
	IsAdmin bool `json:"isAdmin"`
}

func (m *adminModule) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[userListQ, userListOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *userListQ) (userListOut, error) {
			page, err := m.users.List(c.Request.Context(), ez.CurrentUser(c), in.Offset, in.Limit, in.Q)
			if err != nil {
				return userListOut{}, err
			}
			out := userListOut{Total: page.Total, Items: make([]userRow, 0, len(page.Items))}
			for _, u := range page.Items {
				out.Items = append(out.Items, userRow{
					ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role(), CreatedAt: u.CreatedAt,
				})
			}
			return out, nil
		},
	})

	ez.RegisterAction(e, ez.Action[setAdminIn, userRow]{
		Method: http.MethodPut,
		Path:   "/users/:id/admin",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *setAdminIn) (userRow, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return userRow{}, err
			}
			u, err := m.users.SetAdmin(c.Request.Context(), ez.CurrentUser(c), id, in.IsAdmin)
			if err != nil {
				return userRow{}, err
			}
			return userRow{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role(), CreatedAt: u.CreatedAt}, nil
		},
	})

	// 状态确有变化且 notifyAllVoters 时入队 fan-out，立即返回
	ez.RegisterAction(e, ez.Action[service.SetStatusInput, *service.StatusChange]{
		Method: http.MethodPut,
		Path:   "/ideas/:id/status",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.SetStatusInput) (*service.StatusChange, error) {
			id, err := ez.ParamID(c, "id")
			if err != nil {
				return nil, err
			}
			return m.ideas.SetStatus(c.Request.Context(), ez.CurrentUser(c), id, *in)
		},
	})
}
