package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidVideoID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"video1", true},
		{"my-video_2", true},
		{"a", true},
		{strings.Repeat("a", MaxVideoIDLength), true},
		{strings.Repeat("a", MaxVideoIDLength+1), false},
		{"", false},
		{"Video1", false},
		{"../video1", false},
		{"video1/..", false},
		{"video.1", false},
		{"video 1", false},
		{"-video", false},
		{"video_", false},
		{"วิดีโอ", false},
		{"video%2F..", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidVideoID(tt.id))
			if tt.want {
				assert.NoError(t, ValidateVideoID(tt.id))
			} else {
				assert.ErrorIs(t, ValidateVideoID(tt.id), ErrInvalidVideoID)
			}
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Bearer"))
	assert.Equal(t, "", ExtractTokenFromHeader("Bearer a b"))
	assert.Equal(t, "Bearer xyz", BearerValue("xyz"))
}
