package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"go-gin-idea-board/internal/core/auth"
	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/policy"
	"go-gin-idea-board/internal/validation"
	"go-gin-idea-board/pkg/utils"
)

var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)

type UserService struct {
	users domain.UserRepository
	jwt   *auth.JWTer
	auth  policy.Authorizer
}

func NewUserService(u domain.UserRepository, j *auth.JWTer, a policy.Authorizer) *UserService {
	return &UserService{users: u, jwt: j, auth: a}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"omitempty,max=64"` // 首次登录自动注册时使用
}

type LoginResult struct {
	Token string       `json:"token"`
	IsNew bool         `json:"isNew"`
	User  *domain.User `json:"user"`
}

// Login 查不到邮箱就自动注册，然后签发 JWT
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, in.Email)
	isNew := false
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.register(ctx, in)
		if err != nil {
			return nil, err
		}
		isNew = true
	case err != nil:
		return nil, err
	default:
		if !utils.CheckPassword(in.Password, u.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
	}

	tok, err := s.jwt.Issue(u.ID, u.Role())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: tok, IsNew: isNew, User: u}, nil
}

func (s *UserService) register(ctx context.Context, in LoginInput) (*domain.User, error) {
	name := in.Name
	if name == "" {
		if at := strings.IndexByte(in.Email, '@'); at > 0 {
			name = in.Email[:at]
		} else {
			name = "user"
		}
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Email: in.Email, Name: name, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		// 并发注册同一邮箱：唯一冲突后按登录处理
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("register: %w", err)
		}
		existing, ferr := s.users.FindByEmail(ctx, in.Email)
		if ferr != nil {
			return nil, ferr
		}
		if !utils.CheckPassword(in.Password, existing.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
		return existing, nil
	}
	return u, nil
}

// FindByID 鉴权中间件按 token 里的 uid 加载当前用户
func (s *UserService) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

type UserPage struct {
	Total int64         `json:"total"`
	Items []domain.User `json:"items"`
}

func (s *UserService) List(ctx context.Context, actor *domain.User, offset, limit int, q string) (*UserPage, error) {
	if err := s.auth.Authorize(actor, policy.ManageUsers, nil); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.users.List(ctx, offset, limit, strings.TrimSpace(q))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &UserPage{Total: total, Items: items}, nil
}

func (s *UserService) SetAdmin(ctx context.Context, actor *domain.User, id uint, admin bool) (*domain.User, error) {
	if err := s.auth.Authorize(actor, policy.ManageUsers, nil); err != nil {
		return nil, err
	}
	if err := s.users.SetAdmin(ctx, id, admin); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}
