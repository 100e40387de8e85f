// Package publisher emits run summaries to downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Publisher delivers one JSON-encoded payload per completed run.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Memory collects payloads in-process; the default when no broker is
// configured and the backend for tests.
type Memory struct {
	mu       sync.Mutex
	messages [][]byte
}

// NewMemory creates an empty in-memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish stores the marshaled payload and returns a synthetic message ID.
func (m *Memory) Publish(_ context.Context, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, data)
	return fmt.Sprintf("memory-%d", len(m.messages)), nil
}

// Messages returns copies of everything published so far.
func (m *Memory) Messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.messages))
	for i, msg := range m.messages {
		out[i] = append([]byte(nil), msg...)
	}
	return out
}
