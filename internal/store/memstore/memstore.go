// Package memstore keeps users, posts and comments in process memory. It
// backs DB_DRIVER=memory and the service and handler tests. Every operation
// holds the store lock, so the like toggle is atomic here as well.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

// Store is the shared state behind the repositories.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	last     time.Time
	users    map[string]types.User
	posts    map[string]types.Post
	comments map[string]types.Comment
}

func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[string]types.User),
		posts:    make(map[string]types.Post),
		comments: make(map[string]types.Comment),
	}
}

// Users returns a repository over the store's users.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Posts returns a repository over the store's posts.
func (s *Store) Posts() *PostRepository { return &PostRepository{s: s} }

// Comments returns a repository over the store's comments.
func (s *Store) Comments() *CommentRepository { return &CommentRepository{s: s} }

// tick returns a timestamp strictly after every one handed out before, so
// ordering by creation time is stable even on coarse clocks. Callers hold
// the write lock.
func (s *Store) tick() time.Time {
	now := s.now()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.ID == user.ID || strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrConflict
		}
	}
	now := r.s.tick()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	return user, nil
}

type PostRepository struct {
	s *Store
}

func (r *PostRepository) List(_ context.Context, offset, limit int) ([]types.Post, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.sorted(func(types.Post) bool { return true })
	total := len(all)
	if offset >= total {
		return []types.Post{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (r *PostRepository) ListByOwner(_ context.Context, ownerID string) ([]types.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(p types.Post) bool { return p.CreatedBy == ownerID }), nil
}

func (r *PostRepository) Get(_ context.Context, id string) (types.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	post, ok := r.s.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return clonePost(post), nil
}

func (r *PostRepository) Create(_ context.Context, post types.Post) (types.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.posts[post.ID]; exists {
		return types.Post{}, store.ErrConflict
	}
	now := r.s.tick()
	post.CreatedAt = now
	post.UpdatedAt = now
	post = clonePost(post)
	r.s.posts[post.ID] = post
	return clonePost(post), nil
}

func (r *PostRepository) ToggleLike(_ context.Context, postID, userID string) (types.Post, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post, ok := r.s.posts[postID]
	if !ok {
		return types.Post{}, false, store.ErrNotFound
	}

	likes := slices.Clone(post.Likes)
	liked := false
	if i := slices.Index(likes, userID); i >= 0 {
		likes = slices.Delete(likes, i, i+1)
	} else {
		likes = append(likes, userID)
		liked = true
	}
	post.Likes = likes
	post.UpdatedAt = r.s.now()
	r.s.posts[postID] = post
	return clonePost(post), liked, nil
}

func (r *PostRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.posts, id)
	return nil
}

// sorted must be called with the lock held.
func (r *PostRepository) sorted(keep func(types.Post) bool) []types.Post {
	out := make([]types.Post, 0, len(r.s.posts))
	for _, post := range r.s.posts {
		if keep(post) {
			out = append(out, clonePost(post))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type CommentRepository struct {
	s *Store
}

func (r *CommentRepository) Create(_ context.Context, comment types.Comment) (types.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.comments[comment.ID]; exists {
		return types.Comment{}, store.ErrConflict
	}
	if _, exists := r.s.posts[comment.PostID]; !exists {
		return types.Comment{}, store.ErrNotFound
	}
	comment.CreatedAt = r.s.tick()
	r.s.comments[comment.ID] = comment
	return comment, nil
}

func (r *CommentRepository) ListByPost(_ context.Context, postID string) ([]types.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]types.Comment, 0)
	for _, comment := range r.s.comments {
		if comment.PostID == postID {
			out = append(out, comment)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *CommentRepository) DeleteByPost(_ context.Context, postID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for id, comment := range r.s.comments {
		if comment.PostID == postID {
			delete(r.s.comments, id)
			removed++
		}
	}
	return removed, nil
}

func clonePost(p types.Post) types.Post {
	p.Likes = slices.Clone(p.Likes)
	if p.Likes == nil {
		p.Likes = []string{}
	}
	return p
}
