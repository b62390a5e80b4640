package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"go-gin-idea-board/internal/core/events"
	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/policy"
	"go-gin-idea-board/internal/validation"
)

type CommentInput struct {
	Body string `json:"body" validate:"required,min=4"`
}

type CommentService struct {
	comments domain.CommentRepository
	ideas    domain.IdeaRepository
	auth     policy.Authorizer
	bus      events.Bus
	log      *zap.Logger
}

func NewCommentService(c domain.CommentRepository, i domain.IdeaRepository, a policy.Authorizer, bus events.Bus, l *zap.Logger) *CommentService {
	if l == nil {
		l = zap.NewNop()
	}
	return &CommentService{comments: c, ideas: i, auth: a, bus: bus, log: l}
}

func (s *CommentService) Create(ctx context.Context, actor *domain.User, slug string, in CommentInput) (*domain.Comment, error) {
	if err := s.auth.Authorize(actor, policy.CreateComment, nil); err != nil {
		return nil, err
	}
	in.Body = strings.TrimSpace(in.Body)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	idea, err := s.ideas.FindBySlug(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	c := &domain.Comment{IdeaID: idea.ID, UserID: actor.ID, Body: in.Body}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	s.publish(ctx, events.CommentWasAdded, c)
	return c, nil
}

// Update 仅评论作者；先判权限再校验，非作者永远拿到 403
func (s *CommentService) Update(ctx context.Context, actor *domain.User, id uint, in CommentInput) (*domain.Comment, error) {
	current, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.Authorize(actor, policy.UpdateComment, current); err != nil {
		return nil, err
	}
	in.Body = strings.TrimSpace(in.Body)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	c, err := s.comments.UpdateWith(ctx, id, func(c *domain.Comment) error {
		return s.auth.Authorize(actor, policy.UpdateComment, c)
	}, in.Body)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.CommentWasUpdated, c)
	return c, nil
}

// publish 推送失败只记日志，不影响写入结果
func (s *CommentService) publish(ctx context.Context, name string, c *domain.Comment) {
	if s.bus == nil {
		return
	}
	e := events.Event{Name: name, IdeaID: c.IdeaID, CommentID: c.ID}
	if err := s.bus.Publish(ctx, e); err != nil {
		s.log.Warn("publish comment event failed", zap.String("event", name), zap.Uint("comment_id", c.ID), zap.Error(err))
	}
}
