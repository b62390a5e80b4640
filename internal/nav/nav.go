// Package nav 详情页“返回”链接：只认本站列表页的上一跳
package nav

import (
	"context"
	"net/url"

	"go-gin-idea-board/internal/core/session"
)

// ListRoute 无筛选的列表页
const ListRoute = "/"

// IsListURL 站内相对地址且 path 为列表页
func IsListURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return false
	}
	return u.Path == ListRoute
}

// BackURL 上一跳是列表页（含筛选参数）则原样返回，否则回到无筛选列表
func BackURL(previous string) string {
	if IsListURL(previous) {
		return previous
	}
	return ListRoute
}

// Tracker 每个 session 记录最近一次渲染的页面地址
type Tracker struct {
	store session.Store
}

func NewTracker(s session.Store) *Tracker { return &Tracker{store: s} }

// Previous 读不到（含存储故障）按首次访问处理
func (t *Tracker) Previous(ctx context.Context, sid string) string {
	if t == nil || sid == "" {
		return ""
	}
	v, err := t.store.Get(ctx, sid, session.KeyPreviousURL)
	if err != nil {
		return ""
	}
	return v
}

func (t *Tracker) Record(ctx context.Context, sid, requestURI string) error {
	if t == nil || sid == "" {
		return nil
	}
	return t.store.Set(ctx, sid, session.KeyPreviousURL, requestURI)
}
