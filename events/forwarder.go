package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/robonova/competition-core/live"
)

// RunForwarder drains delta events onto the broadcast hub. This is the
// decoupling point between the write path and fan-out: publishers return
// as soon as the bus accepts the event.
func RunForwarder(ctx context.Context, bus *Bus, hub *live.Hub, logger *slog.Logger) error {
	messages, err := bus.Subscribe(ctx, TopicDeltas)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			var delta Delta
			if err := json.Unmarshal(msg.Payload, &delta); err != nil {
				logger.Error("malformed delta event", slog.Any("error", err))
				msg.Ack()
				continue
			}
			redacted := json.RawMessage(delta.Payload)
			if delta.Redacted != nil {
				redacted = delta.Redacted
			}
			if err := hub.Publish(delta.Topic, delta.Kind, json.RawMessage(delta.Payload), redacted); err != nil {
				logger.Error("hub publish failed",
					slog.String("topic", delta.Topic), slog.Any("error", err))
			}
			msg.Ack()
		}
	}()
	return nil
}
