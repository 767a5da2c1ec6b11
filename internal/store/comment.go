package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/inkpress/apiserver/types"
)

// CommentRepository handles persistence for comments.
type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts comment. ErrNotFound means the parent post is gone.
func (r *CommentRepository) Create(ctx context.Context, comment types.Comment) (types.Comment, error) {
	comment.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO comments (id, post_id, content, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		comment.ID,
		comment.PostID,
		comment.Content,
		comment.CreatedBy,
		comment.CreatedAt,
	); err != nil {
		if isForeignKeyViolation(err, "comments_post_id_fkey") {
			return types.Comment{}, ErrNotFound
		}
		return types.Comment{}, err
	}
	return comment, nil
}

// ListByPost returns the comments of a post, oldest first.
func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]types.Comment, error) {
	const query = `
		SELECT id, post_id, content, created_by, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]types.Comment, 0)
	for rows.Next() {
		var comment types.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.PostID,
			&comment.Content,
			&comment.CreatedBy,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteByPost removes every comment of a post in one statement and returns
// how many were removed.
func (r *CommentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	const query = `DELETE FROM comments WHERE post_id = $1`
	result, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
