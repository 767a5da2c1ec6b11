package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/auth"
	"github.com/inkpress/apiserver/internal/media"
	"github.com/inkpress/apiserver/internal/storage"
	"github.com/inkpress/apiserver/internal/store/memstore"
	"github.com/inkpress/apiserver/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testEnv struct {
	store    *memstore.Store
	objects  *storage.MemoryClient
	users    *UserService
	posts    *PostService
	comments *CommentService
}

func newTestEnv(gateway MediaGateway, cleanup CleanupQueue) *testEnv {
	st := memstore.New()
	objects := storage.NewMemoryClient("blog-media")
	if gateway == nil {
		gateway = media.NewGateway(objects, config.MediaConfig{
			PublicBaseURL: "http://media.test/blog-media",
			Folder:        "blog-images",
			MaxBytes:      5 << 20,
		})
	}
	return &testEnv{
		store:    st,
		objects:  objects,
		users:    NewUserService(st.Users(), bcrypt.MinCost),
		posts:    NewPostService(st.Posts(), st.Comments(), gateway, cleanup, 50*time.Millisecond, zerolog.Nop()),
		comments: NewCommentService(st.Comments(), st.Posts()),
	}
}

func (e *testEnv) signup(email string) auth.Actor {
	user, err := e.users.Register(context.Background(), email, "Test User", "password123")
	if err != nil {
		panic(err)
	}
	return auth.Authenticated(user)
}

func (e *testEnv) post(actor auth.Actor, title string) types.Post {
	post, err := e.posts.Create(context.Background(), actor, PostInput{Title: title, Body: "body"}, nil)
	if err != nil {
		panic(err)
	}
	return post
}

// stubGateway fails deletes with err, or blocks until the context ends when
// block is set.
type stubGateway struct {
	mu      sync.Mutex
	err     error
	block   bool
	deleted []string
}

func (g *stubGateway) Upload(context.Context, media.Upload) (string, error) {
	return "http://media.test/blog-media/blog-images/stub.png", nil
}

func (g *stubGateway) Delete(ctx context.Context, ref string) error {
	if g.block {
		<-ctx.Done()
		return ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, ref)
	return g.err
}

// stubQueue records enqueued references. With block set it waits for the
// context to end, like a broker that stopped accepting publishes.
type stubQueue struct {
	enabled bool
	block   bool
	err     error
	refs    []string
}

func (q *stubQueue) Enabled() bool { return q.enabled }

func (q *stubQueue) Enqueue(ctx context.Context, ref, _ string) error {
	if q.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if q.err != nil {
		return q.err
	}
	q.refs = append(q.refs, ref)
	return nil
}

var errBackendDown = errors.New("backend down")
