package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/handlers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		ServerPort:  0,
		CORSOrigins: []string{"http://app.test"},
		Database:    config.DatabaseConfig{Driver: "memory"},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret",
			TokenTTL:      time.Hour,
			BcryptCost:    4,
			LookupTimeout: time.Second,
		},
		Media: config.MediaConfig{
			Backend:       "memory",
			PublicBaseURL: "http://media.test/blog-media",
			Folder:        "blog-images",
			MaxBytes:      1 << 20,
			DeleteTimeout: time.Second,
			UploadTimeout: time.Second,
		},
		MQ: config.MQConfig{Backend: "none", CleanupChannel: "media-cleanup"},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, client *http.Client, target string, values url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(target, values)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.JWTSecret = ""
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestSessionFlowOverCookies(t *testing.T) {
	ts := newTestServer(t)
	alice := newClient(t)
	bob := newClient(t)

	resp := postForm(t, alice, ts.URL+"/auth/signup", url.Values{
		"email": {"alice@example.com"}, "full_name": {"Alice"}, "password": {"password123"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = postForm(t, bob, ts.URL+"/auth/signup", url.Values{
		"email": {"bob@example.com"}, "full_name": {"Bob"}, "password": {"password123"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postForm(t, alice, ts.URL+"/posts", url.Values{"title": {"Hello"}, "body": {"First post"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var post struct {
		ID        string `json:"id"`
		CreatedBy string `json:"created_by"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&post))

	del := func(client *http.Client) *http.Response {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/posts/"+post.ID, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}
	assert.Equal(t, http.StatusForbidden, del(bob).StatusCode)
	assert.Equal(t, http.StatusOK, del(alice).StatusCode)

	profile, err := alice.Get(ts.URL + "/users/" + post.CreatedBy)
	require.NoError(t, err)
	defer profile.Body.Close()
	var body struct {
		Posts []json.RawMessage `json:"posts"`
	}
	require.NoError(t, json.NewDecoder(profile.Body).Decode(&body))
	assert.Empty(t, body.Posts)

	resp = postForm(t, alice, ts.URL+"/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	me, err := alice.Get(ts.URL + "/auth/me")
	require.NoError(t, err)
	defer me.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
	assert.Equal(t, "/auth/signin", me.Header.Get("Location"))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/posts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))
}

func TestUnknownRoutesUseErrorBody(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
		msg    string
	}{
		{method: http.MethodGet, path: "/nope", status: http.StatusNotFound, msg: "route not found"},
		{method: http.MethodPut, path: "/healthz", status: http.StatusMethodNotAllowed, msg: "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var body handlers.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}
