package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/nav"
	"go-gin-idea-board/internal/policy"
	"go-gin-idea-board/internal/validation"
)

const (
	FlashIdeaCreated   = "Idea was added successfully."
	NoCommentsYet      = "No comments yet..."
	defaultPerPage     = 10
	defaultCommentsPer = 20
)

// VoterNotifier 状态变更后异步通知投票人
type VoterNotifier interface {
	NotifyAllVoters(ctx context.Context, ideaID uint) error
}

type IdeaService struct {
	ideas       domain.IdeaRepository
	comments    domain.CommentRepository
	catalog     domain.CatalogRepository
	auth        policy.Authorizer
	notifier    VoterNotifier
	log         *zap.Logger
	perPage     int
	commentsPer int
}

type IdeaDeps struct {
	Ideas    domain.IdeaRepository
	Comments domain.CommentRepository
	Catalog  domain.CatalogRepository
	Auth     policy.Authorizer
	Notifier VoterNotifier
	Log      *zap.Logger
	// 0 表示默认值
	PerPage         int
	CommentsPerPage int
}

func NewIdeaService(d IdeaDeps) *IdeaService {
	s := &IdeaService{
		ideas: d.Ideas, comments: d.Comments, catalog: d.Catalog,
		auth: d.Auth, notifier: d.Notifier, log: d.Log,
		perPage: d.PerPage, commentsPer: d.CommentsPerPage,
	}
	if s.perPage <= 0 {
		s.perPage = defaultPerPage
	}
	if s.commentsPer <= 0 {
		s.commentsPer = defaultCommentsPer
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// ---------- list ----------

type ListQuery struct {
	Category string
	Status   string
	Page     int
	Viewer   *domain.User
}

type IdeaPage struct {
	Ideas    []domain.Idea `json:"ideas"`
	Page     int           `json:"page"`
	PerPage  int           `json:"perPage"`
	Total    int64         `json:"total"`
	LastPage int           `json:"lastPage"`
	Category string        `json:"category"`
	Status   string        `json:"status"`
}

// normalizeFilter 空值与 “All ...” 哨兵都表示不限
func normalizeFilter(v, all string) string {
	v = strings.TrimSpace(v)
	if v == all {
		return ""
	}
	return v
}

func lastPage(total int64, per int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(per) - 1) / int64(per))
}

func (s *IdeaService) List(ctx context.Context, q ListQuery) (*IdeaPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	f := domain.IdeaFilter{
		Category: normalizeFilter(q.Category, domain.AllCategories),
		Status:   normalizeFilter(q.Status, domain.AllStatuses),
		ViewerID: viewerID(q.Viewer),
		Offset:   (page - 1) * s.perPage,
		Limit:    s.perPage,
	}
	ideas, total, err := s.ideas.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	out := &IdeaPage{
		Ideas: ideas, Page: page, PerPage: s.perPage, Total: total,
		LastPage: lastPage(total, s.perPage),
		Category: domain.AllCategories, Status: domain.AllStatuses,
	}
	if f.Category != "" {
		out.Category = f.Category
	}
	if f.Status != "" {
		out.Status = f.Status
	}
	return out, nil
}

// ---------- show ----------

type ShowQuery struct {
	Slug         string
	CommentsPage int
	Viewer       *domain.User
	// PreviousURL 本 session 上一次渲染的站内地址，由调用方显式传入
	PreviousURL string
}

type CommentView struct {
	domain.Comment
	IsOP    bool `json:"isOp"`
	CanEdit bool `json:"canEdit"`
}

type IdeaDetail struct {
	Idea             *domain.Idea  `json:"idea"`
	VotesCount       int64         `json:"votesCount"`
	BackURL          string        `json:"backUrl"`
	CanDelete        bool          `json:"canDelete"`
	Comments         []CommentView `json:"comments"`
	CommentsPage     int           `json:"commentsPage"`
	CommentsTotal    int64         `json:"commentsTotal"`
	CommentsLastPage int           `json:"commentsLastPage"`
	Placeholder      string        `json:"placeholder,omitempty"`
}

func (s *IdeaService) Show(ctx context.Context, q ShowQuery) (*IdeaDetail, error) {
	idea, err := s.ideas.FindBySlug(ctx, q.Slug, viewerID(q.Viewer))
	if err != nil {
		return nil, err
	}
	page := q.CommentsPage
	if page < 1 {
		page = 1
	}
	comments, total, err := s.comments.ListByIdea(ctx, idea.ID, (page-1)*s.commentsPer, s.commentsPer)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	out := &IdeaDetail{
		Idea:             idea,
		VotesCount:       idea.VotesCount,
		BackURL:          nav.BackURL(q.PreviousURL),
		CanDelete:        policy.Can(s.auth, q.Viewer, policy.DeleteIdea, idea),
		Comments:         make([]CommentView, 0, len(comments)),
		CommentsPage:     page,
		CommentsTotal:    total,
		CommentsLastPage: lastPage(total, s.commentsPer),
	}
	for i := range comments {
		c := comments[i]
		out.Comments = append(out.Comments, CommentView{
			Comment: c,
			IsOP:    c.UserID == idea.UserID,
			CanEdit: policy.Can(s.auth, q.Viewer, policy.UpdateComment, &c),
		})
	}
	if total == 0 {
		out.Placeholder = NoCommentsYet
	}
	return out, nil
}

// Resolve slug → 想法（不带访客信息）
func (s *IdeaService) Resolve(ctx context.Context, slug string) (*domain.Idea, error) {
	return s.ideas.FindBySlug(ctx, slug, 0)
}

// ---------- create / delete ----------

type CreateIdeaInput struct {
	Title       string `json:"title" validate:"required,min=4,max=255"`
	Category    uint   `json:"category" validate:"required"`
	Description string `json:"description" validate:"required,min=4"`
}

func (in *CreateIdeaInput) trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
}

func (s *IdeaService) Create(ctx context.Context, actor *domain.User, in CreateIdeaInput) (*domain.Idea, error) {
	if err := s.auth.Authorize(actor, policy.CreateIdea, nil); err != nil {
		return nil, err
	}
	in.trim()
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	cat, err := s.catalog.CategoryByID(ctx, in.Category)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError("category", "The selected category is invalid.")
	}
	if err != nil {
		return nil, err
	}
	st, err := s.catalog.InitialStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial status: %w", err)
	}

	idea := &domain.Idea{
		UserID:      actor.ID,
		CategoryID:  cat.ID,
		StatusID:    st.ID,
		Title:       in.Title,
		Description: in.Description,
	}
	if err := s.ideas.Create(ctx, idea); err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}
	idea.User, idea.Category, idea.Status = *actor, *cat, *st
	return idea, nil
}

func (s *IdeaService) Delete(ctx context.Context, actor *domain.User, slug string) error {
	idea, err := s.ideas.FindBySlug(ctx, slug, 0)
	if err != nil {
		return err
	}
	// 事务内再判一次，判定与删除之间不会被改写
	return s.ideas.DeleteWith(ctx, idea.ID, func(current *domain.Idea) error {
		return s.auth.Authorize(actor, policy.DeleteIdea, current)
	})
}

// ---------- status ----------

type SetStatusInput struct {
	StatusID        uint `json:"statusId" validate:"required"`
	NotifyAllVoters bool `json:"notifyAllVoters"`
}

type StatusChange struct {
	Idea     *domain.Idea `json:"idea"`
	Changed  bool         `json:"changed"`
	Notified bool         `json:"notified"`
}

// SetStatus 管理员改状态；状态确有变化且勾选通知时投递 fan-out 任务，不等待发送结果
func (s *IdeaService) SetStatus(ctx context.Context, actor *domain.User, ideaID uint, in SetStatusInput) (*StatusChange, error) {
	if err := s.auth.Authorize(actor, policy.SetIdeaStatus, nil); err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if _, err := s.catalog.StatusByID(ctx, in.StatusID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("statusId", "The selected status is invalid.")
		}
		return nil, err
	}
	changed, err := s.ideas.UpdateStatus(ctx, ideaID, in.StatusID)
	if err != nil {
		return nil, err
	}
	out := &StatusChange{Changed: changed}
	if changed && in.NotifyAllVoters && s.notifier != nil {
		if err := s.notifier.NotifyAllVoters(ctx, ideaID); err != nil {
			s.log.Error("dispatch notify_all_voters failed", zap.Uint("idea_id", ideaID), zap.Error(err))
		} else {
			out.Notified = true
		}
	}
	idea, err := s.ideas.FindByID(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	out.Idea = idea
	return out, nil
}

func viewerID(u *domain.User) uint {
	if u == nil {
		return 0
	}
	return u.ID
}
