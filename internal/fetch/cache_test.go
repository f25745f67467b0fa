package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCacheRoundTrip(t *testing.T) {
	c, err := NewResponseCache(8)
	require.NoError(t, err)

	_, found := c.Get("https://a.example/p/1")
	assert.False(t, found)

	c.Put("https://a.example/p/1", []byte("<html>ok</html>"))
	body, found := c.Get("https://a.example/p/1")
	assert.True(t, found)
	assert.Equal(t, []byte("<html>ok</html>"), body)
}

func TestNegativeEntryIsStable(t *testing.T) {
	c, err := NewResponseCache(8)
	require.NoError(t, err)

	c.PutNegative("https://a.example/p/2")
	body, found := c.Get("https://a.example/p/2")
	assert.True(t, found)
	assert.Nil(t, body)

	// A later negative write must not oscillate, and must not clobber a
	// positive entry either.
	c.PutNegative("https://a.example/p/2")
	body, found = c.Get("https://a.example/p/2")
	assert.True(t, found)
	assert.Nil(t, body)

	c.Put("https://a.example/p/3", []byte("real"))
	c.PutNegative("https://a.example/p/3")
	body, found = c.Get("https://a.example/p/3")
	assert.True(t, found)
	assert.Equal(t, []byte("real"), body)
}
