package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSub publishes run summaries to a Google Cloud Pub/Sub topic.
type PubSub struct {
	topic *pubsub.Topic
}

// NewPubSub wraps an existing topic handle.
func NewPubSub(topic *pubsub.Topic) (*PubSub, error) {
	if topic == nil {
		return nil, fmt.Errorf("pubsub topic is required")
	}
	return &PubSub{topic: topic}, nil
}

// Publish marshals the payload to JSON and publishes it, blocking until the
// broker acknowledges.
func (p *PubSub) Publish(ctx context.Context, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages and releases topic resources.
func (p *PubSub) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}
