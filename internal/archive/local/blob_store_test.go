package local

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutObjectWritesFile(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	uri, err := s.PutObject(context.Background(), "tesco/abc123.html", "text/html", strings.NewReader("<html>x</html>"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
	require.NoError(t, err)
	assert.Equal(t, "<html>x</html>", string(data))
}

func TestPutObjectRejectsTraversal(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = s.PutObject(context.Background(), "../escape.html", "text/html", strings.NewReader("x"))
	assert.Error(t, err)
}
