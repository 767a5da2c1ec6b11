package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/inkpress/apiserver/types"
	"github.com/lib/pq"
)

const postColumns = `id, title, body, cover_image_url, category, likes, created_by, created_at, updated_at`

// PostRepository handles persistence for posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// List returns posts newest first together with the total count.
func (r *PostRepository) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM posts`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + postColumns + `
		FROM posts
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2`
	posts, err := r.query(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListByOwner returns every post created by ownerID, newest first.
func (r *PostRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts
		WHERE created_by = $1
		ORDER BY created_at DESC, id`
	return r.query(ctx, query, ownerID)
}

func (r *PostRepository) Get(ctx context.Context, id string) (types.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts
		WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Likes == nil {
		post.Likes = []string{}
	}

	const query = `
		INSERT INTO posts (id, title, body, cover_image_url, category, likes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		post.ID,
		post.Title,
		post.Body,
		post.CoverImageURL,
		string(post.Category),
		pq.Array(post.Likes),
		post.CreatedBy,
		post.CreatedAt,
		post.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Post{}, ErrConflict
		}
		return types.Post{}, err
	}
	return post, nil
}

// ToggleLike flips userID's membership in the post's like set with a single
// UPDATE. Concurrent toggles on the same row are serialized by the row lock,
// and the CASE is re-evaluated against the latest row version, so the set
// never holds a duplicate.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID string) (types.Post, bool, error) {
	const query = `
		UPDATE posts
		SET likes = CASE
				WHEN $2::uuid = ANY(likes) THEN array_remove(likes, $2::uuid)
				ELSE array_append(likes, $2::uuid)
			END,
			updated_at = $3
		WHERE id = $1
		RETURNING ` + postColumns
	post, err := scanPost(r.db.QueryRowContext(ctx, query, postID, userID, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, false, ErrNotFound
		}
		return types.Post{}, false, err
	}
	return post, post.LikedBy(userID), nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostRepository) query(ctx context.Context, query string, args ...any) ([]types.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (types.Post, error) {
	var post types.Post
	var category string
	likes := pq.StringArray{}
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Body,
		&post.CoverImageURL,
		&category,
		&likes,
		&post.CreatedBy,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return types.Post{}, err
	}
	post.Category = types.Category(category)
	post.Likes = []string(likes)
	if post.Likes == nil {
		post.Likes = []string{}
	}
	return post, nil
}
