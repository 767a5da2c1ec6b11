package services

import (
	"context"
	"strings"
	"testing"

	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/errs"
	"github.com/inkpress/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment(t *testing.T) {
	env := newTestEnv(nil, nil)
	alice := env.signup("alice@example.com")
	bob := env.signup("bob@example.com")
	post := env.post(alice, "Hello")
	ctx := context.Background()

	comment, err := env.comments.Create(ctx, bob, post.ID, "  great read  ")
	require.NoError(t, err)
	assert.Equal(t, "great read", comment.Content)
	assert.Equal(t, bob.ID(), comment.CreatedBy)
	assert.Equal(t, post.ID, comment.PostID)

	tests := []struct {
		name    string
		actor   auth.Actor
		postID  string
		content string
		kind    errs.Kind
	}{
		{name: "anonymous", actor: auth.Anonymous(), postID: post.ID, content: "hi", kind: errs.Unauthenticated},
		{name: "empty", actor: bob, postID: post.ID, content: "   ", kind: errs.Validation},
		{name: "too long", actor: bob, postID: post.ID, content: strings.Repeat("x", 2001), kind: errs.Validation},
		{name: "missing post", actor: bob, postID: "0b8e4f0e-54a1-4d8e-8d1c-2f0b6a7c9e33", content: "hi", kind: errs.NotFound},
		{name: "malformed post id", actor: bob, postID: "nope", content: "hi", kind: errs.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.comments.Create(ctx, tt.actor, tt.postID, tt.content)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
		})
	}
}

// stalePosts still reports every post as present.
type stalePosts struct{}

func (stalePosts) Get(_ context.Context, id string) (types.Post, error) {
	return types.Post{ID: id}, nil
}

func TestCreateCommentOnPostDeletedMeanwhile(t *testing.T) {
	env := newTestEnv(nil, nil)
	bob := env.signup("bob@example.com")
	comments := NewCommentService(env.store.Comments(), stalePosts{})

	_, err := comments.Create(context.Background(), bob, "0b8e4f0e-54a1-4d8e-8d1c-2f0b6a7c9e33", "hi")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}
