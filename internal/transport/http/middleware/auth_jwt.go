package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-idea-board/internal/core/auth"
	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/transport/http/ez"
)

// TokenCookie 浏览器场景下 JWT 也可放 cookie
const TokenCookie = "ib_token"

type UserLoader interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}

func bearer(c *gin.Context) string {
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimPrefix(ah, "Bearer ")
	}
	if v, err := c.Cookie(TokenCookie); err == nil {
		return v
	}
	return ""
}

// AuthJWT 解析 token 并从库里加载当前用户（角色以库为准）。
// required=false 时无 token / token 无效按游客放行，由 policy 决定能做什么。
func AuthJWT(j *auth.JWTer, users UserLoader, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c)
		if tok == "" {
			if required {
				ez.Fail(c, ez.Unauthorized("missing token"))
				return
			}
			c.Next()
			return
		}
		claims, err := j.Parse(tok)
		if err != nil {
			if required {
				ez.Fail(c, ez.Unauthorized("invalid token"))
				return
			}
			c.Next()
			return
		}
		uid, err := claims.UserID()
		if err != nil {
			ez.Fail(c, ez.Unauthorized("invalid token"))
			return
		}
		u, err := users.FindByID(c.Request.Context(), uid)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if required {
				ez.Fail(c, ez.Unauthorized("user not found"))
				return
			}
		case err != nil:
			ez.Fail(c, err)
			return
		default:
			c.Set("claims", claims)
			c.Set(ez.CtxUser, u)
		}
		c.Next()
	}
}

// RequireRole 需在 AuthJWT 之后
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := ez.CurrentUser(c)
		if u == nil {
			ez.Fail(c, domain.ErrUnauthenticated)
			return
		}
		if u.Role() != role {
			ez.Fail(c, domain.ErrForbidden)
			return
		}
		c.Next()
	}
}
