package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/errs"
	"github.com/inkpress/apiserver/internal/media"
	"github.com/inkpress/apiserver/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	defaultMediaTimeout = 10 * time.Second
)

// PostRepository defines persistence operations for posts. ToggleLike must
// flip membership in one atomic step.
type PostRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Post, int, error)
	ListByOwner(ctx context.Context, ownerID string) ([]types.Post, error)
	Get(ctx context.Context, id string) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (types.Post, bool, error)
	Delete(ctx context.Context, id string) error
}

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment types.Comment) (types.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]types.Comment, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
}

// MediaGateway stores and removes cover images.
type MediaGateway interface {
	Upload(ctx context.Context, up media.Upload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// CleanupQueue accepts media deletes to retry later.
type CleanupQueue interface {
	Enabled() bool
	Enqueue(ctx context.Context, ref, reason string) error
}

// PostInput is the create-post form.
type PostInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
	Category string `json:"category"`
}

type LikeResult struct {
	PostID    string `json:"post_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

type MediaStatus string

const (
	MediaNone    MediaStatus = "none"
	MediaDeleted MediaStatus = "deleted"
	MediaFailed  MediaStatus = "failed"
)

// MediaOutcome reports what happened to a deleted post's cover image.
type MediaOutcome struct {
	Status    MediaStatus `json:"status"`
	Reference string      `json:"reference,omitempty"`
	Error     string      `json:"error,omitempty"`
	Requeued  bool        `json:"requeued"`
}

// DeleteResult separates removal of the post and its comments from the
// best-effort media cleanup, so each can be checked on its own.
type DeleteResult struct {
	PostID          string       `json:"post_id"`
	PostDeleted     bool         `json:"post_deleted"`
	CommentsDeleted int64        `json:"comments_deleted"`
	Media           MediaOutcome `json:"media"`
}

// PostService coordinates posts with their comments and cover images.
type PostService struct {
	posts              PostRepository
	comments           CommentRepository
	media              MediaGateway
	cleanup            CleanupQueue
	mediaDeleteTimeout time.Duration
	logger             zerolog.Logger
}

// NewPostService builds a PostService. cleanup may be nil.
func NewPostService(
	posts PostRepository,
	comments CommentRepository,
	gateway MediaGateway,
	cleanup CleanupQueue,
	mediaDeleteTimeout time.Duration,
	logger zerolog.Logger,
) *PostService {
	if mediaDeleteTimeout <= 0 {
		mediaDeleteTimeout = defaultMediaTimeout
	}
	return &PostService{
		posts:              posts,
		comments:           comments,
		media:              gateway,
		cleanup:            cleanup,
		mediaDeleteTimeout: mediaDeleteTimeout,
		logger:             logger.With().Str("component", "posts").Logger(),
	}
}

func (s *PostService) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	posts, total, err := s.posts.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, storeError("posts", err)
	}
	return posts, total, nil
}

// ListByOwner returns a user's posts, newest first.
func (s *PostService) ListByOwner(ctx context.Context, ownerID string) ([]types.Post, error) {
	if !validID(ownerID) {
		return []types.Post{}, nil
	}
	posts, err := s.posts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeError("posts", err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id string) (types.Post, error) {
	if !validID(id) {
		return types.Post{}, notFound("post")
	}
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return types.Post{}, storeError("post", err)
	}
	return post, nil
}

// GetWithComments loads a post and its comments, oldest comment first.
func (s *PostService) GetWithComments(ctx context.Context, id string) (types.Post, []types.Comment, error) {
	if !validID(id) {
		return types.Post{}, nil, notFound("post")
	}

	var (
		post     types.Post
		comments []types.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		post, err = s.posts.Get(gctx, id)
		if err != nil {
			return storeError("post", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		comments, err = s.comments.ListByPost(gctx, id)
		if err != nil {
			return storeError("comments", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.Post{}, nil, err
	}
	return post, comments, nil
}

// Create publishes a post owned by actor. A cover is optional; if storing
// the post fails after the upload, the uploaded image is removed again.
func (s *PostService) Create(ctx context.Context, actor auth.Actor, in PostInput, cover *media.Upload) (types.Post, error) {
	if err := auth.RequireActor(actor); err != nil {
		return types.Post{}, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if err := validateInput(in); err != nil {
		return types.Post{}, err
	}
	category, err := types.ParseCategory(in.Category)
	if err != nil {
		return types.Post{}, errs.Invalid("category", "category must be one of Technology, Health, Lifestyle, Fashion")
	}

	var ref string
	if cover != nil && len(cover.Data) > 0 {
		ref, err = s.media.Upload(ctx, *cover)
		if err != nil {
			return types.Post{}, err
		}
	}

	post, err := s.posts.Create(ctx, types.Post{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Body:          in.Body,
		CoverImageURL: ref,
		Category:      category,
		Likes:         []string{},
		CreatedBy:     actor.ID(),
	})
	if err != nil {
		if ref != "" {
			s.discardUpload(ref)
		}
		return types.Post{}, errs.Wrap(errs.Internal, "create post", err)
	}

	s.logger.Info().Str("post_id", post.ID).Str("user_id", actor.ID()).Msg("post created")
	return post, nil
}

// ToggleLike adds the actor to the post's likes, or removes them if present.
func (s *PostService) ToggleLike(ctx context.Context, actor auth.Actor, postID string) (LikeResult, error) {
	if err := auth.RequireActor(actor); err != nil {
		return LikeResult{}, err
	}
	if !validID(postID) {
		return LikeResult{}, notFound("post")
	}
	post, liked, err := s.posts.ToggleLike(ctx, postID, actor.ID())
	if err != nil {
		return LikeResult{}, storeError("post", err)
	}
	return LikeResult{PostID: post.ID, Liked: liked, LikeCount: post.LikeCount()}, nil
}

// Delete removes a post owned by actor in order: authorize, cover image,
// comments, post. The media step never blocks the rest; its outcome is
// reported in DeleteResult.Media. Repeating a delete that failed halfway is
// safe.
func (s *PostService) Delete(ctx context.Context, actor auth.Actor, postID string) (DeleteResult, error) {
	result := DeleteResult{PostID: postID, Media: MediaOutcome{Status: MediaNone}}

	post, err := s.Get(ctx, postID)
	if err != nil {
		return result, err
	}
	if err := auth.Authorize(actor, post.CreatedBy); err != nil {
		return result, err
	}

	log := s.logger.With().Str("post_id", post.ID).Str("user_id", actor.ID()).Logger()

	if post.CoverImageURL != "" {
		result.Media = s.deleteCover(ctx, log, post.CoverImageURL)
	}

	removed, err := s.comments.DeleteByPost(ctx, post.ID)
	if err != nil {
		return result, errs.Wrap(errs.Internal, "delete comments", err)
	}
	result.CommentsDeleted = removed

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return result, storeError("post", err)
	}
	result.PostDeleted = true

	log.Info().
		Int64("comments_deleted", removed).
		Str("media", string(result.Media.Status)).
		Msg("post deleted")
	return result, nil
}

func (s *PostService) deleteCover(ctx context.Context, log zerolog.Logger, ref string) MediaOutcome {
	outcome := MediaOutcome{Reference: ref}

	mctx, cancel := context.WithTimeout(ctx, s.mediaDeleteTimeout)
	defer cancel()

	err := s.media.Delete(mctx, ref)
	if err == nil {
		outcome.Status = MediaDeleted
		return outcome
	}

	outcome.Status = MediaFailed
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome.Error = "media delete timed out"
	case errors.Is(err, media.ErrForeignReference):
		outcome.Error = "media is not hosted here"
	default:
		outcome.Error = "media backend unavailable"
	}
	log.Warn().Err(err).Str("reference", ref).Msg("cover image delete failed")

	if errors.Is(err, media.ErrForeignReference) || s.cleanup == nil || !s.cleanup.Enabled() {
		return outcome
	}
	// The retry outlives a cancelled request but still gets its own deadline.
	qctx, qcancel := context.WithTimeout(context.WithoutCancel(ctx), s.mediaDeleteTimeout)
	defer qcancel()
	if qerr := s.cleanup.Enqueue(qctx, ref, outcome.Error); qerr != nil {
		log.Error().Err(qerr).Str("reference", ref).Msg("could not queue cover image cleanup")
		return outcome
	}
	outcome.Requeued = true
	return outcome
}

func (s *PostService) discardUpload(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.mediaDeleteTimeout)
	defer cancel()
	if err := s.media.Delete(ctx, ref); err != nil {
		s.logger.Warn().Err(err).Str("reference", ref).Msg("could not remove orphaned upload")
	}
}
