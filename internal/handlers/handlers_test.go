package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/media"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/internal/storage"
	"github.com/inkpress/apiserver/internal/store/memstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testAPI struct {
	t       *testing.T
	router  http.Handler
	objects *storage.MemoryClient
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st := memstore.New()
	objects := storage.NewMemoryClient("blog-media")
	gateway := media.NewGateway(objects, config.MediaConfig{
		PublicBaseURL: "http://media.test/blog-media",
		Folder:        "blog-images",
		MaxBytes:      1 << 20,
	})
	logger := zerolog.Nop()

	users := services.NewUserService(st.Users(), bcrypt.MinCost)
	posts := services.NewPostService(st.Posts(), st.Comments(), gateway, nil, time.Second, logger)
	comments := services.NewCommentService(st.Comments(), st.Posts())
	codec := auth.NewTokenCodec("test-secret", time.Hour)
	resolver := auth.NewResolver(codec, users, time.Second, logger)

	r := chi.NewRouter()
	r.Use(resolver.Middleware)
	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, NewAuthHandler(users, codec, false, logger))
	})
	r.Route("/posts", func(r chi.Router) {
		PostRouter(r, NewPostHandler(posts, comments, 1<<20, logger))
	})
	r.Route("/users", func(r chi.Router) {
		UserRouter(r, NewUserHandler(users, posts, logger))
	})

	return &testAPI{t: t, router: r, objects: objects}
}

func (a *testAPI) do(method, path string, body io.Reader, contentType string, session *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) postJSON(path string, payload any, session *http.Cookie) *httptest.ResponseRecorder {
	data, err := json.Marshal(payload)
	require.NoError(a.t, err)
	return a.do(http.MethodPost, path, bytes.NewReader(data), "application/json", session)
}

// signup registers email and returns the session cookie and user id.
func (a *testAPI) signup(email string) (*http.Cookie, string) {
	rec := a.postJSON("/auth/signup", SignupRequest{Email: email, FullName: "Test User", Password: "password123"}, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	decode(a.t, rec, &resp)
	return sessionCookie(a.t, rec), resp.User.ID
}

func (a *testAPI) createPost(session *http.Cookie, fields map[string]string, cover []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if cover != nil {
		part, err := mw.CreateFormFile("coverImage", "cover.png")
		require.NoError(a.t, err)
		_, err = part.Write(cover)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())
	return a.do(http.MethodPost, "/posts", &body, mw.FormDataContentType(), session)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.CookieName)
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func form(values map[string]string) io.Reader {
	v := url.Values{}
	for k, val := range values {
		v.Set(k, val)
	}
	return strings.NewReader(v.Encode())
}
