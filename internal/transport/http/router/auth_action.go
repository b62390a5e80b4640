package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-idea-board/internal/service"
	"go-gin-idea-board/internal/transport/http/ez"
	mdw "go-gin-idea-board/internal/transport/http/middleware"
)

// authModule /auth/login（公共）+ /me（需登录）
type authModule struct {
	users *service.UserService
}

func (authModule) Priority() int { return 10 }

type meOut struct {
	ID      uint   `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"isAdmin"`
}

type loginOut struct {
	Token string `json:"token"`
	IsNew bool   `json:"isNew"`
	User  meOut  `json:"user"`
}

func (m *authModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	// 查不到就自动注册 + 发 JWT；同时写 cookie 方便浏览器直接使用
	ez.RegisterAction(e, ez.Action[service.LoginInput, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.LoginInput) (loginOut, error) {
			res, err := m.users.Login(c.Request.Context(), *in)
			if err != nil {
				return loginOut{}, err
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(mdw.TokenCookie, res.Token, 0, "/", "", false, true)
			u := res.User
			return loginOut{
				Token: res.Token, IsNew: res.IsNew,
				User: meOut{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role(), IsAdmin: u.IsAdmin},
			}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, meOut]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (meOut, error) {
			u := ez.CurrentUser(c)
			return meOut{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role(), IsAdmin: u.IsAdmin}, nil
		},
	})
}
