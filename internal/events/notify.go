package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes one structured log line per emitted event.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("topic", event.Topic).
		Str("aggregate_id", event.AggregateID).
		Msg("domain_event")
	return nil
}
