package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// UserHandler serves public author profiles.
type UserHandler struct {
	users  *services.UserService
	posts  *services.PostService
	logger zerolog.Logger
}

func NewUserHandler(users *services.UserService, posts *services.PostService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		posts:  posts,
		logger: logger.With().Str("handler", "users").Logger(),
	}
}

// UserRouter registers profile routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Get("/{userID}", handler.GetProfile)
}

type ProfileResponse struct {
	User  types.User     `json:"user"`
	Posts []PostResponse `json:"posts"`
}

// GetProfile returns a user with their posts, newest first.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var (
		user  types.User
		posts []types.Post
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		user, err = h.users.GetByID(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = h.posts.ListByOwner(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		User:  user,
		Posts: newPostResponses(posts, auth.ActorFromContext(r.Context())),
	})
}
