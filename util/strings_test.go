package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "photo.jpg", SafeFilename("photo.jpg"))
	assert.Equal(t, "my_photo_1_.jpg", SafeFilename("my photo (1).jpg"))
	assert.Equal(t, "file", SafeFilename(""))
	assert.Equal(t, "file", SafeFilename("..."))
	assert.Equal(t, "a_.._b", SafeFilename("a/../b"))
}

func TestSanitizePathSegment(t *testing.T) {
	assert.Equal(t, "general", SanitizePathSegment("general"))
	assert.Equal(t, "my_server", SanitizePathSegment(`my\server`))
	assert.Equal(t, "a_b", SanitizePathSegment("a:b"))
	assert.Equal(t, "file", SanitizePathSegment(""))
	assert.Equal(t, "file", SanitizePathSegment(" . "))
}
