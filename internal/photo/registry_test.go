package photo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	h := r.Allocate([]byte("jpeg"))
	assert.True(t, IsPreview(h))
	data, ok := r.Lookup(h)
	require.True(t, ok)
	assert.Equal(t, []byte("jpeg"), data)

	withPreviews := r.Files([]File{{Name: "a.jpg", Data: []byte("a")}, {Name: "b.jpg", Preview: h}})
	assert.True(t, IsPreview(withPreviews[0].Preview))
	assert.Equal(t, h, withPreviews[1].Preview)
	assert.Equal(t, 2, r.Len())

	r.Release("https://cdn/remote.jpg")
	assert.Equal(t, 2, r.Len())

	r.Release(h)
	_, ok = r.Lookup(h)
	assert.False(t, ok)

	r.Reset()
	assert.Zero(t, r.Len())
}
