package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the in-process event bus. Publishing never blocks on consumers:
// each subscription has its own buffered channel, so a slow notification
// sink cannot back-pressure score ingestion.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermill.NewSlogLogger(logger),
		),
	}
}

// Publish marshals the payload and hands it to the bus.
func (b *Bus) Publish(topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for topic %s: %w", topic, err)
	}
	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), raw))
}

// Subscribe returns the message stream for a topic; messages must be
// acked by the consumer.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// PublishDelta is the write-path entry: state changes go out as deltas
// and reach clients through the hub forwarder.
func (b *Bus) PublishDelta(topic, kind string, payload, redacted any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal delta payload: %w", err)
	}
	delta := Delta{Topic: topic, Kind: kind, Payload: raw}
	if redacted != nil {
		if delta.Redacted, err = json.Marshal(redacted); err != nil {
			return fmt.Errorf("marshal redacted payload: %w", err)
		}
	}
	return b.Publish(TopicDeltas, delta)
}

// Notify queues an outbound notification event.
func (b *Bus) Notify(n Notification) error {
	return b.Publish(TopicNotifications, n)
}
