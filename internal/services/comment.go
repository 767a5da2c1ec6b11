package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/errs"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

// PostLookup checks that a comment's parent exists.
type PostLookup interface {
	Get(ctx context.Context, id string) (types.Post, error)
}

type CommentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type CommentService struct {
	comments CommentRepository
	posts    PostLookup
}

func NewCommentService(comments CommentRepository, posts PostLookup) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

// Create adds a comment by actor to an existing post.
func (s *CommentService) Create(ctx context.Context, actor auth.Actor, postID, content string) (types.Comment, error) {
	if err := auth.RequireActor(actor); err != nil {
		return types.Comment{}, err
	}
	in := CommentInput{Content: strings.TrimSpace(content)}
	if err := validateInput(in); err != nil {
		return types.Comment{}, err
	}
	if !validID(postID) {
		return types.Comment{}, notFound("post")
	}
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return types.Comment{}, storeError("post", err)
	}

	comment, err := s.comments.Create(ctx, types.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		Content:   in.Content,
		CreatedBy: actor.ID(),
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		// The post was deleted after the check above.
		return types.Comment{}, notFound("post")
	case err != nil:
		return types.Comment{}, errs.Wrap(errs.Internal, "create comment", err)
	}
	return comment, nil
}

// ListByPost returns a post's comments, oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]types.Comment, error) {
	if !validID(postID) {
		return nil, notFound("post")
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, storeError("comments", err)
	}
	return comments, nil
}
