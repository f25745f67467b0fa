package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	p := New()
	id, err := p.Publish(context.Background(), "aisle-outcomes", map[string]string{"product": "P1"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "aisle-outcomes", msgs[0].Topic)
}
