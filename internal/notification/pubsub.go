package notification

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher publishes raw messages to a named channel. *redis.Client from
// internal/store/redis satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// PubSubNotifier publishes alerts as JSON to a Pub/Sub channel.
type PubSubNotifier struct {
	pub     Publisher
	channel string
}

// NewPubSubNotifier creates a notifier publishing to channel.
func NewPubSubNotifier(pub Publisher, channel string) *PubSubNotifier {
	return &PubSubNotifier{pub: pub, channel: channel}
}

func (p *PubSubNotifier) Send(ctx context.Context, alert Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("pubsub: marshal: %w", err)
	}
	if err := p.pub.Publish(ctx, p.channel, data); err != nil {
		return fmt.Errorf("pubsub: publish %s: %w", p.channel, err)
	}
	return nil
}
