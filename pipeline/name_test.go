package pipeline

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFileName(t *testing.T) {
	pattern := regexp.MustCompile(`^\d+-[0-9a-f]{16}\.jpg$`)

	name, err := generateFileName("Holiday Photo.JPG")
	require.NoError(t, err)
	assert.Regexp(t, pattern, name)

	// Two names for the same input must differ.
	other, err := generateFileName("Holiday Photo.JPG")
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
}

func TestGenerateFileNameWithoutExtension(t *testing.T) {
	name, err := generateFileName("README")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d+-[0-9a-f]{16}$`), name)
}

func TestStorageCategory(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"avatar", "avatars"},
		{"user_avatar_large", "avatars"},
		{"game_cover", "games"},
		{"app_icon", "games"},
		{"screenshot_1", "screenshots"},
		{"attachment", "misc"},
		{"", "misc"},
		{"AVATAR", "avatars"}, // case insensitive
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storageCategory(tt.field), "field %q", tt.field)
	}
}

func TestStorageCategoryFirstMatchWins(t *testing.T) {
	// "avatar" is checked before "icon".
	assert.Equal(t, "avatars", storageCategory("avatar_icon"))
}

func TestRelativeStoragePath(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	got := relativeStoragePath("avatars", "1234-abcd.png", now)
	assert.Equal(t, "avatars/2026/03/07/1234-abcd.png", got)
}
