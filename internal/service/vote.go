package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"go-gin-idea-board/internal/domain"
	"go-gin-idea-board/internal/policy"
)

var votesToggled = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "idea_votes_toggled_total", Help: "Vote toggles by resulting state"},
	[]string{"result"},
)

func init() { prometheus.MustRegister(votesToggled) }

type VoteService struct {
	votes domain.VoteRepository
	ideas domain.IdeaRepository
	auth  policy.Authorizer
}

func NewVoteService(v domain.VoteRepository, i domain.IdeaRepository, a policy.Authorizer) *VoteService {
	return &VoteService{votes: v, ideas: i, auth: a}
}

type VoteResult struct {
	Voted      bool  `json:"voted"`
	VotesCount int64 `json:"votesCount"`
}

func (s *VoteService) Toggle(ctx context.Context, actor *domain.User, slug string) (*VoteResult, error) {
	idea, err := s.ideas.FindBySlug(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	if err := s.auth.Authorize(actor, policy.Vote, idea); err != nil {
		return nil, err
	}
	voted, err := s.votes.Toggle(ctx, actor.ID, idea.ID)
	if err != nil {
		return nil, fmt.Errorf("toggle vote: %w", err)
	}
	n, err := s.votes.Count(ctx, idea.ID)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	if voted {
		votesToggled.WithLabelValues("voted").Inc()
	} else {
		votesToggled.WithLabelValues("unvoted").Inc()
	}
	return &VoteResult{Voted: voted, VotesCount: n}, nil
}
