package publisher

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublishRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	id, err := m.Publish(context.Background(), map[string]any{"run_id": "run-1", "resolved": 3})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[0], &payload))
	assert.Equal(t, "run-1", payload["run_id"])
}

func TestMemoryPublishRejectsUnmarshalable(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_, err := m.Publish(context.Background(), func() {})
	assert.Error(t, err)
	assert.Empty(t, m.Messages())
}

func TestNewPubSubRequiresTopic(t *testing.T) {
	t.Parallel()

	_, err := NewPubSub(nil)
	assert.Error(t, err)
}
