package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-idea-board/internal/core/auth"
	"go-gin-idea-board/internal/core/events"
	"go-gin-idea-board/internal/core/queue"
	"go-gin-idea-board/internal/core/session"
	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/nav"
	"go-gin-idea-board/internal/notify"
	"go-gin-idea-board/internal/policy"
	"go-gin-idea-board/internal/repo"
	"go-gin-idea-board/internal/service"
	"go-gin-idea-board/internal/testutil"
	mdw "go-gin-idea-board/internal/transport/http/middleware"
)

const sessionCookie = "ib_session"

type harness struct {
	t          *testing.T
	db         *gorm.DB
	jwt        *auth.JWTer
	bus        *events.Memory
	subscribed chan uint
	q          *queue.Memory
	api        *gin.Engine
	admin      *gin.Engine
}

// watchedBus 订阅时通知测试，SSE 用例据此确认连接已就绪
type watchedBus struct {
	*events.Memory
	subscribed chan uint
}

func (b watchedBus) Subscribe(ctx context.Context, ideaID uint) (<-chan events.Event, func()) {
	ch, cancel := b.Memory.Subscribe(ctx, ideaID)
	select {
	case b.subscribed <- ideaID:
	default:
	}
	return ch, cancel
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	p := policy.New()
	j := auth.New("test-secret", "idea-board-test", time.Hour)
	store := session.NewMemory(time.Hour)
	bus := events.NewMemory()
	q := queue.NewMemory(16)
	subscribed := make(chan uint, 8)

	ideaRepo := repo.NewIdeaRepo(db)
	commentRepo := repo.NewCommentRepo(db)
	catalogRepo := repo.NewCatalogRepo(db)

	d := Deps{
		Log:   zap.NewNop(),
		Env:   "test",
		JWT:   j,
		Users: service.NewUserService(repo.NewUserRepo(db), j, p),
		Ideas: service.NewIdeaService(service.IdeaDeps{
			Ideas: ideaRepo, Comments: commentRepo, Catalog: catalogRepo,
			Auth: p, Notifier: notify.NewDispatcher(q), PerPage: 2,
		}),
		Comments: service.NewCommentService(commentRepo, ideaRepo, p, bus, zap.NewNop()),
		Votes:    service.NewVoteService(repo.NewVoteRepo(db), ideaRepo, p),
		Catalog:  service.NewCatalogService(catalogRepo, nil, time.Minute),
		Sessions: store,
		Tracker:  nav.NewTracker(store),
		Bus:      watchedBus{Memory: bus, subscribed: subscribed},
		Session:  mdw.SessionOpts{CookieName: sessionCookie, MaxAgeSec: 3600},
	}
	return &harness{t: t, db: db, jwt: j, bus: bus, subscribed: subscribed, q: q, api: NewAPIEngine(d), admin: NewAdminEngine(d)}
}

func (h *harness) token(u *domain.User) string {
	h.t.Helper()
	tok, err := h.jwt.Issue(u.ID, u.Role())
	require.NoError(h.t, err)
	return tok
}

// client 模拟一个浏览器：保存 session cookie，可选带 token
type client struct {
	h       *harness
	engine  *gin.Engine
	token   string
	session *http.Cookie
}

func (h *harness) client(u *domain.User) *client {
	c := &client{h: h, engine: h.api}
	if u != nil {
		c.token = h.token(u)
	}
	return c
}

func (h *harness) adminClient(u *domain.User) *client {
	c := h.client(u)
	c.engine = h.admin
	return c
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *client) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	c.h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.h.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.session != nil {
		req.AddCookie(c.session)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == sessionCookie {
			c.session = ck
		}
	}
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(c.h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w, _ := h.client(nil).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPaginatesAndFilters(t *testing.T) {
	h := newHarness(t)
	u := testutil.MakeUser(t, h.db, "Ada", false)
	for i := 1; i <= 3; i++ {
		testutil.MakeIdea(t, h.db, u, fmt.Sprintf("Idea %d", i), fmt.Sprintf("idea-%d", i))
	}
	c := h.client(nil)

	w, env := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[service.IdeaPage](t, env.Data)
	assert.Len(t, page.Ideas, 2)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.LastPage)

	_, env = c.do(http.MethodGet, "/?page=2", nil)
	page = decode[service.IdeaPage](t, env.Data)
	assert.Len(t, page.Ideas, 1)

	// 超出末页返回空列表而不是 null
	_, env = c.do(http.MethodGet, "/?page=9", nil)
	page = decode[service.IdeaPage](t, env.Data)
	assert.NotNil(t, page.Ideas)
	assert.Empty(t, page.Ideas)

	_, env = c.do(http.MethodGet, "/?status=Considering", nil)
	page = decode[service.IdeaPage](t, env.Data)
	assert.Empty(t, page.Ideas)

	_, env = c.do(http.MethodGet, "/?category=All+Categories&status=All+Statuses", nil)
	page = decode[service.IdeaPage](t, env.Data)
	assert.EqualValues(t, 3, page.Total)
}

func TestShowBackURLFollowsFilteredList(t *testing.T) {
	h := newHarness(t)
	u := testutil.MakeUser(t, h.db, "Ada", false)
	testutil.MakeIdea(t, h.db, u, "Dark mode", "dark-mode")

	c := h.client(nil)
	w, _ := c.do(http.MethodGet, "/?status=Considering&page=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, c.session)

	_, env := c.do(http.MethodGet, "/ideas/dark-mode", nil)
	d := decode[service.IdeaDetail](t, env.Data)
	assert.Equal(t, "/?status=Considering&page=1", d.BackURL)
	assert.Equal(t, service.NoCommentsYet, d.Placeholder)
	assert.False(t, d.CanDelete)

	// 上一跳是详情页本身，回到无筛选列表
	_, env = c.do(http.MethodGet, "/ideas/dark-mode", nil)
	d = decode[service.IdeaDetail](t, env.Data)
	assert.Equal(t, nav.ListRoute, d.BackURL)

	// 新访客没有上一跳
	_, env = h.client(nil).do(http.MethodGet, "/ideas/dark-mode", nil)
	d = decode[service.IdeaDetail](t, env.Data)
	assert.Equal(t, nav.ListRoute, d.BackURL)
}

func TestShowUnknownSlugIs404(t *testing.T) {
	h := newHarness(t)
	u := testutil.MakeUser(t, h.db, "Ada", false)
	testutil.MakeIdea(t, h.db, u, "Dark mode", "dark-mode")
	c := h.client(nil)
	w, env := c.do(http.MethodGet, "/ideas/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, env.Code)

	// 404 页面不覆盖上一跳
	w, _ = c.do(http.MethodGet, "/?category=Category+2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	c.do(http.MethodGet, "/ideas/nope", nil)
	_, env = c.do(http.MethodGet, "/ideas/dark-mode", nil)
	assert.Equal(t, "/?category=Category+2", decode[service.IdeaDetail](t, env.Data).BackURL)
}

func TestCreateIdea(t *testing.T) {
	h := newHarness(t)
	u := testutil.MakeUser(t, h.db, "Ada", false)
	cat := testutil.Category(t, h.db, "Category 2")

	w, _ := h.client(nil).do(http.MethodPost, "/ideas", gin.H{
		"title": "Guest idea", "category": cat.ID, "description": "from a guest",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	c := h.client(u)
	w, env := c.do(http.MethodPost, "/ideas", gin.H{"title": "ab", "category": cat.ID, "description": "d"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, env.Data)
	assert.Contains(t, errs.Errors, "title")
	assert.Contains(t, errs.Errors, "description")

	w, env = c.do(http.MethodPost, "/ideas", gin.H{"title": "Dark mode", "category": cat.ID, "description": "Please add it"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[redirectOut](t, env.Data)
	assert.Equal(t, nav.ListRoute, out.Redirect)
	assert.Equal(t, "dark-mode", out.Slug)
	assert.Equal(t, "Open", out.Idea.Status.Name)

	// flash 只在下一次列表页出现一次
	_, env = c.do(http.MethodGet, "/", nil)
	assert.Equal(t, service.FlashIdeaCreated, decode[listOut](t, env.Data).Flash)
	_, env = c.do(http.MethodGet, "/", nil)
	assert.Empty(t, decode[listOut](t, env.Data).Flash)

	// 同名再建得到不同 slug
	_, env = c.do(http.MethodPost, "/ideas", gin.H{"title": "Dark mode", "category": cat.ID, "description": "Again please"})
	assert.Equal(t, "dark-mode-2", decode[redirectOut](t, env.Data).Slug)
}

func TestDeleteIdea(t *testing.T) {
	h := newHarness(t)
	owner := testutil.MakeUser(t, h.db, "Ada", false)
	other := testutil.MakeUser(t, h.db, "Bob", false)
	idea := testutil.MakeIdea(t, h.db, owner, "Dark mode", "dark-mode")
	testutil.MakeComment(t, h.db, other, idea, "nice one")

	w, _ := h.client(nil).do(http.MethodDelete, "/ideas/dark-mode", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = h.client(other).do(http.MethodDelete, "/ideas/dark-mode", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c := h.client(owner)
	_, env := c.do(http.MethodGet, "/ideas/dark-mode", nil)
	assert.True(t, decode[service.IdeaDetail](t, env.Data).CanDelete)

	w, env = c.do(http.MethodDelete, "/ideas/dark-mode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, nav.ListRoute, decode[redirectOut](t, env.Data).Redirect)

	w, _ = c.do(http.MethodGet, "/ideas/dark-mode", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var n int64
	require.NoError(t, h.db.Model(&domain.Comment{}).Where("idea_id = ?", idea.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestVoteToggle(t *testing.T) {
	h := newHarness(t)
	u := testutil.MakeUser(t, h.db, "Ada", false)
	testutil.MakeIdea(t, h.db, u, "Dark mode", "dark-mode")

	w, _ := h.client(nil).do(http.MethodPost, "/ideas/dark-mode/vote", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c := h.client(u)
	w, env := c.do(http.MethodPost, "/ideas/dark-mode/vote", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[service.VoteResult](t, env.Data)
	assert.True(t, res.Voted)
	assert.EqualValues(t, 1, res.VotesCount)

	_, env = c.do(http.MethodGet, "/", nil)
	page := decode[service.IdeaPage](t, env.Data)
	require.Len(t, page.Ideas, 1)
	assert.True(t, page.Ideas[0].VotedByUser)

	_, env = c.do(http.MethodPost, "/ideas/dark-mode/vote", nil)
	res = decode[service.VoteResult](t, env.Data)
	assert.False(t, res.Voted)
	assert.Zero(t, res.VotesCount)

	w, _ = c.do(http.MethodPost, "/ideas/nope/vote", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentCreateAndEdit(t *testing.T) {
	h := newHarness(t)
	owner := testutil.MakeUser(t, h.db, "Ada", false)
	author := testutil.MakeUser(t, h.db, "Bob", false)
	other := testutil.MakeUser(t, h.db, "Cy", false)
	idea := testutil.MakeIdea(t, h.db, owner, "Dark mode", "dark-mode")

	ch, cancel := h.bus.Subscribe(context.Background(), idea.ID)
	defer cancel()

	w, _ := h.client(nil).do(http.MethodPost, "/ideas/dark-mode/comments", gin.H{"body": "guest says hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c := h.client(author)
	w, env := c.do(http.MethodPost, "/ideas/dark-mode/comments", gin.H{"body": "me too"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[commentOut](t, env.Data)
	assert.Equal(t, events.CommentWasAdded, out.Event)
	assert.Equal(t, "Bob", out.Comment.User.Name)

	select {
	case e := <-ch:
		assert.Equal(t, events.CommentWasAdded, e.Name)
		assert.Equal(t, out.Comment.ID, e.CommentID)
	case <-time.After(time.Second):
		t.Fatal("no comment event")
	}

	path := fmt.Sprintf("/comments/%d", out.Comment.ID)
	w, _ = h.client(nil).do(http.MethodPut, path, gin.H{"body": "hijacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = h.client(other).do(http.MethodPut, path, gin.H{"body": "hijacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = c.do(http.MethodPut, path, gin.H{"body": "no"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = c.do(http.MethodPut, path, gin.H{"body": "me too, edited"})
	require.Equal(t, http.StatusOK, w.Code)
	out = decode[commentOut](t, env.Data)
	assert.Equal(t, "me too, edited", out.Comment.Body)
	assert.Equal(t, events.CommentWasUpdated, out.Event)

	w, _ = c.do(http.MethodPut, "/comments/abc", gin.H{"body": "whatever"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 详情页：作者标记 OP，可编辑只对评论作者
	_, env = h.client(author).do(http.MethodGet, "/ideas/dark-mode", nil)
	d := decode[service.IdeaDetail](t, env.Data)
	require.Len(t, d.Comments, 1)
	assert.False(t, d.Comments[0].IsOP)
	assert.True(t, d.Comments[0].CanEdit)
	assert.Empty(t, d.Placeholder)
}

func TestCommentStreamPushesUpdates(t *testing.T) {
	h := newHarness(t)
	owner := testutil.MakeUser(t, h.db, "Ada", false)
	author := testutil.MakeUser(t, h.db, "Bob", false)
	idea := testutil.MakeIdea(t, h.db, owner, "Dark mode", "dark-mode")

	c := h.client(author)
	w, env := c.do(http.MethodPost, "/ideas/dark-mode/comments", gin.H{"body": "me too"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[commentOut](t, env.Data)

	srv := httptest.NewServer(h.api)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/ideas/dark-mode/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	type result struct {
		resp *http.Response
		err  error
	}
	got := make(chan result, 1)
	go func() {
		resp, err := srv.Client().Do(req)
		got <- result{resp, err}
	}()

	select {
	case id := <-h.subscribed:
		require.Equal(t, idea.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not subscribe")
	}

	w, _ = c.do(http.MethodPut, fmt.Sprintf("/comments/%d", created.Comment.ID), gin.H{"body": "me too, edited"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var r result
	select {
	case r = <-got:
	case <-ctx.Done():
		t.Fatal("no stream response")
	}
	require.NoError(t, r.err)
	defer r.resp.Body.Close()
	assert.Equal(t, http.StatusOK, r.resp.StatusCode)
	assert.Contains(t, r.resp.Header.Get("Content-Type"), "text/event-stream")

	sc := bufio.NewScanner(r.resp.Body)
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if name != "" && data != "" {
			break
		}
	}
	require.Equal(t, events.CommentWasUpdated, name)
	e := decode[events.Event](t, json.RawMessage(data))
	assert.Equal(t, idea.ID, e.IdeaID)
	assert.Equal(t, created.Comment.ID, e.CommentID)
}

func TestLoginSetsCookieAndMe(t *testing.T) {
	h := newHarness(t)
	c := h.client(nil)

	w, env := c.do(http.MethodPost, "/auth/login", gin.H{"email": "Ada@Example.com", "password": "secret123", "name": "Ada"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[loginOut](t, env.Data)
	assert.True(t, out.IsNew)
	assert.Equal(t, "ada@example.com", out.User.Email)

	var tokCookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == mdw.TokenCookie {
			tokCookie = ck
		}
	}
	require.NotNil(t, tokCookie)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(tokCookie)
	rec := httptest.NewRecorder()
	h.api.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "ada@example.com", decode[meOut](t, me.Data).Email)

	w, _ = c.do(http.MethodPost, "/auth/login", gin.H{"email": "ada@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = h.client(nil).do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	h := newHarness(t)
	u := testutil.MakeUser(t, h.db, "Ada", false)
	testutil.MakeIdea(t, h.db, u, "Dark mode", "dark-mode")
	c := h.client(nil)

	_, env := c.do(http.MethodGet, "/categories", nil)
	assert.Len(t, decode[[]domain.Category](t, env.Data), 4)

	_, env = c.do(http.MethodGet, "/statuses", nil)
	tabs := decode[[]service.StatusTab](t, env.Data)
	require.Len(t, tabs, 5)
	assert.Equal(t, "Open", tabs[0].Name)
	assert.EqualValues(t, 1, tabs[0].Count)
}

func TestAdminSetStatus(t *testing.T) {
	h := newHarness(t)
	admin := testutil.MakeUser(t, h.db, "Root", true)
	u := testutil.MakeUser(t, h.db, "Ada", false)
	idea := testutil.MakeIdea(t, h.db, u, "Dark mode", "dark-mode")
	testutil.MakeVote(t, h.db, u, idea)
	considering := testutil.Status(t, h.db, "Considering")
	path := fmt.Sprintf("/admin/v1/ideas/%d/status", idea.ID)
	body := gin.H{"statusId": considering.ID, "notifyAllVoters": true}

	w, _ := h.adminClient(nil).do(http.MethodPut, path, body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = h.adminClient(u).do(http.MethodPut, path, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c := h.adminClient(admin)
	w, env := c.do(http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ch := decode[service.StatusChange](t, env.Data)
	assert.True(t, ch.Changed)
	assert.True(t, ch.Notified)
	assert.Equal(t, "Considering", ch.Idea.Status.Name)
	assert.Equal(t, 1, h.q.Len())

	// 同一状态再设一次：无变化，不再入队
	_, env = c.do(http.MethodPut, path, body)
	ch = decode[service.StatusChange](t, env.Data)
	assert.False(t, ch.Changed)
	assert.Equal(t, 1, h.q.Len())

	w, _ = c.do(http.MethodPut, path, gin.H{"statusId": 999})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = c.do(http.MethodPut, "/admin/v1/ideas/999/status", gin.H{"statusId": considering.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminUsers(t *testing.T) {
	h := newHarness(t)
	admin := testutil.MakeUser(t, h.db, "Root", true)
	u := testutil.MakeUser(t, h.db, "Ada", false)
	c := h.adminClient(admin)

	w, env := c.do(http.MethodGet, "/admin/v1/users?q=ada", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[userListOut](t, env.Data)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "ada@example.com", list.Items[0].Email)

	w, env = c.do(http.MethodPut, fmt.Sprintf("/admin/v1/users/%d/admin", u.ID), gin.H{"isAdmin": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode[userRow](t, env.Data).Role)

	w, _ = c.do(http.MethodPut, "/admin/v1/users/999/admin", gin.H{"isAdmin": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
