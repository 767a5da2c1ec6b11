package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"github.com/rs/zerolog"
)

// CookieName is the cookie that carries the session token.
const CookieName = "token"

const defaultLookupTimeout = 2 * time.Second

// UserLookup loads the current user record for a verified token subject.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// Resolver turns the session token on a request into an Actor.
type Resolver struct {
	codec         *TokenCodec
	users         UserLookup
	lookupTimeout time.Duration
	logger        zerolog.Logger
}

// NewResolver constructs a Resolver. A non-positive lookupTimeout selects
// the default.
func NewResolver(codec *TokenCodec, users UserLookup, lookupTimeout time.Duration, logger zerolog.Logger) *Resolver {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return &Resolver{
		codec:         codec,
		users:         users,
		lookupTimeout: lookupTimeout,
		logger:        logger.With().Str("component", "identityResolver").Logger(),
	}
}

// Middleware resolves the actor once per request and stores it in the
// request context. It never rejects a request: missing, invalid or stale
// tokens all continue as anonymous.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := res.Resolve(r)
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// Resolve returns the actor for r.
func (res *Resolver) Resolve(r *http.Request) Actor {
	tokenString := tokenFromRequest(r)
	if tokenString == "" {
		return Anonymous()
	}

	claims, err := res.codec.Verify(tokenString)
	if err != nil {
		res.logger.Debug().Str("path", r.URL.Path).Msg("ignoring invalid session token")
		return Anonymous()
	}

	ctx, cancel := context.WithTimeout(r.Context(), res.lookupTimeout)
	defer cancel()

	// Re-read the user instead of trusting the embedded claims.
	user, err := res.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			res.logger.Debug().Str("subject", claims.Subject).Msg("session subject no longer exists")
			return Anonymous()
		}
		res.logger.Warn().Err(err).Str("subject", claims.Subject).Msg("identity lookup failed, continuing as anonymous")
		return Anonymous()
	}
	return Authenticated(user)
}

// SetSessionCookie writes the session cookie for token.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie instructs the client to drop the session cookie. The
// token itself stays valid until it expires.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// tokenFromRequest reads the session cookie, falling back to a bearer
// Authorization header for API clients.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
