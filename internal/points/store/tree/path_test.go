package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotacultural/pkg/platform/sentinel"
)

func TestSplit(t *testing.T) {
	segments, err := Split("/points/abc/")
	require.NoError(t, err)
	assert.Equal(t, []string{"points", "abc"}, segments)

	_, err = Split("")
	assert.ErrorIs(t, err, sentinel.ErrInvalidPath)
	_, err = Split("points/ /x")
	assert.ErrorIs(t, err, sentinel.ErrInvalidPath)
}

func TestParentAndKey(t *testing.T) {
	parent, key, err := parentAndKey("points/a/b")
	require.NoError(t, err)
	assert.Equal(t, "points/a", parent)
	assert.Equal(t, "b", key)

	_, _, err = parentAndKey("points")
	assert.ErrorIs(t, err, sentinel.ErrInvalidPath)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c`, escapeLike("a_b%c"))
}
