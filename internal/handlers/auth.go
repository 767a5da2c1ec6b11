package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/errs"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/types"
	"github.com/rs/zerolog"
)

// AuthHandler provides signup, signin and session endpoints.
type AuthHandler struct {
	users        *services.UserService
	codec        *auth.TokenCodec
	cookieSecure bool
	logger       zerolog.Logger
}

func NewAuthHandler(users *services.UserService, codec *auth.TokenCodec, cookieSecure bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:        users,
		codec:        codec,
		cookieSecure: cookieSecure,
		logger:       logger.With().Str("handler", "auth").Logger(),
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/signup", handler.Signup)
	r.Post("/signin", handler.Signin)
	r.Post("/logout", handler.Logout)
	r.Get("/me", handler.Me)
}

type SignupRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      types.User `json:"user"`
}

// Signup creates an account and starts a session for it.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	err := bindRequest(r, &req, func(get func(string) string) {
		req.Email = get("email")
		req.FullName = get("full_name")
		req.Password = get("password")
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info().Str("user_id", user.ID).Msg("user registered")
	h.startSession(w, http.StatusCreated, user)
}

// Signin checks credentials and starts a session.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	err := bindRequest(r, &req, func(get func(string) string) {
		req.Email = get("email")
		req.Password = get("password")
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.startSession(w, http.StatusOK, user)
}

// Logout clears the session cookie. Issued tokens stay valid until expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearSessionCookie(w, h.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.ActorFromContext(r.Context()).User()
	if !ok {
		writeServiceError(w, h.logger, errs.New(errs.Unauthenticated, "sign in required"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, status int, user types.User) {
	token, expiresAt, err := h.codec.Issue(user)
	if err != nil {
		writeServiceError(w, h.logger, errs.Wrap(errs.Internal, "issue token", err))
		return
	}
	auth.SetSessionCookie(w, token, expiresAt, h.cookieSecure)
	writeJSON(w, status, AuthResponse{Token: token, ExpiresAt: expiresAt, User: user})
}
