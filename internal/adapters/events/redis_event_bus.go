package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/redis"
)

const subscriberBuffer = 16

// redisChannel is one Redis subscription shared by every local subscriber
// of the same channel.
type redisChannel struct {
	pubsub    *redis.PubSub
	listeners map[chan *entities.SessionEvent]struct{}
}

// RedisEventBus implements EventBus over Redis Pub/Sub, so the API server
// and the stream server can run as separate processes.
type RedisEventBus struct {
	client *redisclient.Client

	mu       sync.RWMutex
	channels map[string]*redisChannel
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:   client,
		channels: make(map[string]*redisChannel),
		ctx:      ctx,
		cancel:   cancel,
	}
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// Publish sends event to every process subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("session_id", event.SessionID).Msg("published session event")
	return nil
}

// Subscribe returns a channel of events published on channel. It is closed
// once ctx is done or the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionEvent, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("event bus is closed")
	}

	rc, ok := b.channels[channel]
	if !ok {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		// Publishes before the confirmation would be lost
		if _, err := pubsub.Receive(ctx); err != nil {
			b.mu.Unlock()
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		rc = &redisChannel{pubsub: pubsub, listeners: make(map[chan *entities.SessionEvent]struct{})}
		b.channels[channel] = rc
		go b.forward(channel, rc)
	}

	events := make(chan *entities.SessionEvent, subscriberBuffer)
	rc.listeners[events] = struct{}{}
	listeners := len(rc.listeners)
	b.mu.Unlock()

	log.Debug().Str("channel", channel).Int("listeners", listeners).Msg("subscribed to session events")

	go func() {
		<-ctx.Done()
		b.unsubscribe(channel, events)
	}()

	return events, nil
}

// forward fans Redis messages out to the local listeners until the
// subscription is closed.
func (b *RedisEventBus) forward(channel string, rc *redisChannel) {
	defer b.drop(channel, rc)

	messages := rc.pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event entities.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("discarding malformed session event")
				continue
			}

			b.mu.RLock()
			for listener := range rc.listeners {
				e := event
				select {
				case listener <- &e:
				default:
					log.Warn().Str("channel", channel).Str("session_id", event.SessionID).Msg("listener is behind, skipping session event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) unsubscribe(channel string, events chan *entities.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rc, ok := b.channels[channel]
	if !ok {
		return
	}
	if _, ok := rc.listeners[events]; !ok {
		return
	}
	delete(rc.listeners, events)
	close(events)

	if len(rc.listeners) == 0 {
		delete(b.channels, channel)
		_ = rc.pubsub.Close()
	}
}

// drop removes rc if it still owns channel and closes its listeners.
func (b *RedisEventBus) drop(channel string, rc *redisChannel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channels[channel] != rc {
		return
	}
	delete(b.channels, channel)
	for listener := range rc.listeners {
		close(listener)
	}
	rc.listeners = nil
	if err := rc.pubsub.Close(); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
	}
}

// Close ends every subscription. Listener channels are closed.
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	var errs []error
	for channel, rc := range b.channels {
		delete(b.channels, channel)
		for listener := range rc.listeners {
			close(listener)
		}
		rc.listeners = nil
		if err := rc.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}
