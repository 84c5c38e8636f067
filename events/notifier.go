package events

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Notifier is the outbound boundary to the external notification
// service. The core fires events; delivery (email/SMS/WhatsApp) is not
// its concern.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier is the default sink when no notifier is wired, useful in
// development and tests.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	l.Logger.InfoContext(ctx, "notification event",
		slog.String("kind", n.Kind),
		slog.Int("tournament_id", n.TournamentID),
		slog.Int("session_id", n.SessionID),
		slog.Int("match_id", n.MatchID))
	return nil
}

// RunOutbox forwards queued notification events to the notifier.
func RunOutbox(ctx context.Context, bus *Bus, notifier Notifier, logger *slog.Logger) error {
	messages, err := bus.Subscribe(ctx, TopicNotifications)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			var n Notification
			if err := json.Unmarshal(msg.Payload, &n); err != nil {
				logger.Error("malformed notification event", slog.Any("error", err))
				msg.Ack()
				continue
			}
			if err := notifier.Send(ctx, n); err != nil {
				logger.Error("notification delivery failed",
					slog.String("kind", n.Kind), slog.Any("error", err))
			}
			msg.Ack()
		}
	}()
	return nil
}
