package types

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Category is one of the fixed labels a post can be filed under.
type Category string

const (
	CategoryTechnology Category = "Technology"
	CategoryHealth     Category = "Health"
	CategoryLifestyle  Category = "Lifestyle"
	CategoryFashion    Category = "Fashion"
)

// DefaultCategory is applied when a post is created without a category.
const DefaultCategory = CategoryTechnology

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryTechnology,
	CategoryHealth,
	CategoryLifestyle,
	CategoryFashion,
}

// ParseCategory resolves a raw label. An empty label yields DefaultCategory;
// anything outside Categories is an error.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCategory, nil
	}
	c := Category(raw)
	if !slices.Contains(Categories, c) {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// Post is a blog entry authored by a single user.
type Post struct {
	// ID is the unique identifier of the post.
	ID string `json:"id" db:"id"`

	// Title is the headline of the post.
	Title string `json:"title" db:"title"`

	// Body is the post content.
	Body string `json:"body" db:"body"`

	// CoverImageURL is the media reference of the optional cover image.
	// Empty when the post has no cover.
	CoverImageURL string `json:"cover_image_url,omitempty" db:"cover_image_url"`

	// Category is the label the post is filed under.
	Category Category `json:"category" db:"category"`

	// Likes holds the ids of users that liked the post, in the order the
	// likes were given. Each id appears at most once.
	Likes []string `json:"likes" db:"likes"`

	// CreatedBy is the id of the owning user. It never changes after creation.
	CreatedBy string `json:"created_by" db:"created_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LikeCount returns the number of distinct likers.
func (p Post) LikeCount() int {
	return len(p.Likes)
}

// LikedBy reports whether userID is in the like set.
func (p Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}
