package service

import (
	"context"
	"time"

	"go-gin-idea-board/internal/core/cache"
	"go-gin-idea-board/internal/domain"
)

const (
	cacheKeyCategories = "catalog:categories"
	cacheKeyStatuses   = "catalog:statuses"
)

// CatalogService 分类、状态都是种子数据，读穿缓存
type CatalogService struct {
	repo  domain.CatalogRepository
	cache *cache.Cache
	ttl   time.Duration
}

func NewCatalogService(r domain.CatalogRepository, c *cache.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{repo: r, cache: c, ttl: ttl}
}

func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	return cache.GetOrLoadJSON(s.cache, ctx, cacheKeyCategories, s.ttl, s.repo.Categories)
}

func (s *CatalogService) Statuses(ctx context.Context) ([]domain.Status, error) {
	return cache.GetOrLoadJSON(s.cache, ctx, cacheKeyStatuses, s.ttl, s.repo.Statuses)
}

// StatusTab 状态筛选 tab：状态 + 该状态下的想法数
type StatusTab struct {
	domain.Status
	Count int64 `json:"count"`
}

// StatusTabs 不缓存，计数随想法变化
func (s *CatalogService) StatusTabs(ctx context.Context) ([]StatusTab, error) {
	statuses, err := s.Statuses(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.StatusID] = c.Total
	}
	out := make([]StatusTab, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, StatusTab{Status: st, Count: byID[st.ID]})
	}
	return out, nil
}

// Invalidate 种子数据变更后清掉缓存（ideactl seed/migrate 调用）
func (s *CatalogService) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cacheKeyCategories, cacheKeyStatuses)
}
