package providers

import (
	"context"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to session events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.SessionEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelSessionPrefix is the prefix for per-session channels
const EventChannelSessionPrefix = "session-events:"

// GetSessionChannel returns the channel name for a specific session
func GetSessionChannel(sessionID string) string {
	return EventChannelSessionPrefix + sessionID
}
