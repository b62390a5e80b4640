package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-gin-idea-board/internal/domain"
)

func TestAuthorize(t *testing.T) {
	p := New()
	author := &domain.User{ID: 1}
	other := &domain.User{ID: 2}
	admin := &domain.User{ID: 3, IsAdmin: true}
	idea := &domain.Idea{ID: 10, UserID: author.ID}
	comment := &domain.Comment{ID: 20, IdeaID: idea.ID, UserID: other.ID}

	tests := []struct {
		name   string
		actor  *domain.User
		action Action
		target any
		want   error
	}{
		{"guest create idea is forbidden", nil, CreateIdea, nil, domain.ErrForbidden},
		{"guest vote needs login", nil, Vote, idea, domain.ErrUnauthenticated},
		{"guest comment needs login", nil, CreateComment, idea, domain.ErrUnauthenticated},
		{"guest delete is forbidden", nil, DeleteIdea, idea, domain.ErrForbidden},
		{"guest edit is forbidden", nil, UpdateComment, comment, domain.ErrForbidden},
		{"user creates idea", other, CreateIdea, nil, nil},
		{"author votes own idea", author, Vote, idea, nil},
		{"author deletes idea", author, DeleteIdea, idea, nil},
		{"admin deletes idea", admin, DeleteIdea, idea, nil},
		{"other cannot delete idea", other, DeleteIdea, idea, domain.ErrForbidden},
		{"comment author edits", other, UpdateComment, comment, nil},
		{"idea author cannot edit comment", author, UpdateComment, comment, domain.ErrForbidden},
		{"admin cannot edit comment", admin, UpdateComment, comment, domain.ErrForbidden},
		{"admin sets status", admin, SetIdeaStatus, idea, nil},
		{"user cannot set status", author, SetIdeaStatus, idea, domain.ErrForbidden},
		{"user cannot manage users", other, ManageUsers, nil, domain.ErrForbidden},
		{"unknown action denied", admin, Action("nope"), nil, domain.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Authorize(tt.actor, tt.action, tt.target)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCan(t *testing.T) {
	p := New()
	idea := &domain.Idea{UserID: 1}
	assert.True(t, Can(p, &domain.User{ID: 1}, DeleteIdea, idea))
	assert.False(t, Can(p, &domain.User{ID: 2}, DeleteIdea, idea))
}
