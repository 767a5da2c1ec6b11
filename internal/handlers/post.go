package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/errs"
	"github.com/inkpress/apiserver/internal/media"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/types"
	"github.com/rs/zerolog"
)

const (
	maxMultipartMemory = 8 << 20
	formFieldTitle     = "title"
	formFieldBody      = "body"
	formFieldCategory  = "category"
	formFieldCover     = "coverImage"
)

// PostHandler provides HTTP handlers for posts, their likes and comments.
type PostHandler struct {
	posts          *services.PostService
	comments       *services.CommentService
	maxUploadBytes int64
	logger         zerolog.Logger
}

func NewPostHandler(posts *services.PostService, comments *services.CommentService, maxUploadBytes int64, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		posts:          posts,
		comments:       comments,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("handler", "posts").Logger(),
	}
}

// PostRouter registers post routes on the given router.
func PostRouter(r chi.Router, handler *PostHandler) {
	r.Get("/", handler.ListPosts)
	r.Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.Delete("/", handler.DeletePost)
		r.Post("/like", handler.ToggleLike)
		r.Post("/comments", handler.CreateComment)
	})
}

// PostResponse is a post as shown to a viewer.
type PostResponse struct {
	types.Post
	LikeCount       int    `json:"like_count"`
	LikedByViewer   bool   `json:"liked_by_viewer"`
	DisplayImageURL string `json:"display_image_url"`
}

type PostListResponse struct {
	Items []PostResponse `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
}

type PostDetailResponse struct {
	Post     PostResponse    `json:"post"`
	Comments []types.Comment `json:"comments"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

func newPostResponse(post types.Post, viewer auth.Actor) PostResponse {
	if post.Likes == nil {
		post.Likes = []string{}
	}
	return PostResponse{
		Post:            post,
		LikeCount:       post.LikeCount(),
		LikedByViewer:   !viewer.IsAnonymous() && post.LikedBy(viewer.ID()),
		DisplayImageURL: media.DisplayURL(post.CoverImageURL),
	}
}

func newPostResponses(posts []types.Post, viewer auth.Actor) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, newPostResponse(post, viewer))
	}
	return out
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	items, total, err := h.posts.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{
		Items: newPostResponses(items, auth.ActorFromContext(r.Context())),
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, comments, err := h.posts.GetWithComments(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if comments == nil {
		comments = []types.Comment{}
	}
	writeJSON(w, http.StatusOK, PostDetailResponse{
		Post:     newPostResponse(post, auth.ActorFromContext(r.Context())),
		Comments: comments,
	})
}

// CreatePost accepts a multipart or urlencoded form with an optional
// coverImage file.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	if err := auth.RequireActor(actor); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	input, cover, err := h.parsePostForm(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	post, err := h.posts.Create(r.Context(), actor, input, cover)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPostResponse(post, actor))
}

// DeletePost removes the post, its comments and its cover image. The body
// reports each part separately.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	result, err := h.posts.Delete(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	result, err := h.posts.ToggleLike(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	if err := auth.RequireActor(actor); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	var req CommentRequest
	err := bindRequest(r, &req, func(get func(string) string) {
		req.Content = get("content")
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), actor, chi.URLParam(r, "postID"), req.Content)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *PostHandler) parsePostForm(w http.ResponseWriter, r *http.Request) (services.PostInput, *media.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return services.PostInput{}, nil, errs.New(errs.UploadRejected, "request body too large")
			}
			return services.PostInput{}, nil, errs.Wrap(errs.Validation, "invalid multipart form", err)
		}
		if err := r.ParseForm(); err != nil {
			return services.PostInput{}, nil, errs.Wrap(errs.Validation, "invalid form body", err)
		}
	}

	input := services.PostInput{
		Title:    r.FormValue(formFieldTitle),
		Body:     r.FormValue(formFieldBody),
		Category: r.FormValue(formFieldCategory),
	}

	file, header, err := r.FormFile(formFieldCover)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return input, nil, nil
		}
		return services.PostInput{}, nil, errs.Wrap(errs.UploadRejected, "could not read cover image", err)
	}
	defer file.Close()

	// One byte past the limit is enough for the gateway to reject it.
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return services.PostInput{}, nil, errs.Wrap(errs.UploadRejected, "could not read cover image", err)
	}
	if len(data) == 0 {
		return input, nil, nil
	}
	return input, &media.Upload{Filename: header.Filename, Data: data}, nil
}
