// Package policy 统一的授权判定：(actor, action, target) → allow / deny。
// 所有命令在写库前都走这里，不在各处散落 if 判断。
package policy

import (
	"go-gin-idea-board/internal/domain"
)

type Action string

const (
	CreateIdea    Action = "idea.create"
	DeleteIdea    Action = "idea.delete"
	SetIdeaStatus Action = "idea.status"
	Vote          Action = "idea.vote"
	CreateComment Action = "comment.create"
	UpdateComment Action = "comment.update"
	ManageUsers   Action = "users.manage"
)

type Authorizer interface {
	// Authorize 允许返回 nil；拒绝返回 domain.ErrForbidden 或 domain.ErrUnauthenticated
	Authorize(actor *domain.User, action Action, target any) error
}

// Policy 默认规则集
type Policy struct{}

func New() Policy { return Policy{} }

func (Policy) Authorize(actor *domain.User, action Action, target any) error {
	if actor == nil || actor.ID == 0 {
		// 游客：针对归属的动作直接 403，其余要求先登录
		switch action {
		case CreateIdea, DeleteIdea, UpdateComment:
			return domain.ErrForbidden
		}
		return domain.ErrUnauthenticated
	}

	switch action {
	case CreateIdea, Vote, CreateComment:
		return nil

	case DeleteIdea:
		idea, ok := target.(*domain.Idea)
		if !ok || idea == nil {
			return domain.ErrForbidden
		}
		if idea.UserID == actor.ID || actor.IsAdmin {
			return nil
		}

	case UpdateComment:
		// 只有评论作者本人；想法作者、管理员都不行
		c, ok := target.(*domain.Comment)
		if ok && c != nil && c.UserID == actor.ID {
			return nil
		}

	case SetIdeaStatus, ManageUsers:
		if actor.IsAdmin {
			return nil
		}
	}
	return domain.ErrForbidden
}

// Can 便于渲染“是否显示按钮”
func Can(a Authorizer, actor *domain.User, action Action, target any) bool {
	return a.Authorize(actor, action, target) == nil
}
