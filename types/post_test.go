package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Category
		wantErr bool
	}{
		{name: "empty defaults", raw: "", want: CategoryTechnology},
		{name: "whitespace defaults", raw: "   ", want: CategoryTechnology},
		{name: "known label", raw: "Health", want: CategoryHealth},
		{name: "trimmed label", raw: " Fashion ", want: CategoryFashion},
		{name: "case sensitive", raw: "health", wantErr: true},
		{name: "unknown", raw: "Sports", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategory(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostLikes(t *testing.T) {
	p := Post{Likes: []string{"a", "b"}}
	assert.Equal(t, 2, p.LikeCount())
	assert.True(t, p.LikedBy("a"))
	assert.False(t, p.LikedBy("c"))
}
