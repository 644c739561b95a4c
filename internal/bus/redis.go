package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"arena-backend/internal/events"
)

// Redis delivers events across processes over redis pub/sub. Every live
// subscriber receives each published event at least once.
type Redis struct {
	rdb    *redis.Client
	logger zerolog.Logger

	mu      sync.Mutex
	subs    []*redis.PubSub
	ctx     context.Context
	cancel  context.CancelFunc
	started sync.WaitGroup
}

func NewRedis(rdb *redis.Client, logger zerolog.Logger) *Redis {
	ctx, cancel := context.WithCancel(context.Background())
	return &Redis{
		rdb:    rdb,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *Redis) Publish(ctx context.Context, channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", channel, err)
	}

	evt := events.BusEvent{
		Type:      channel,
		Payload:   raw,
		Timestamp: time.Now(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", channel, err)
	}

	if err := b.rdb.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (b *Redis) Subscribe(channel string, handler Handler) {
	sub := b.rdb.Subscribe(b.ctx, channel)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.started.Add(1)
	go func() {
		defer b.started.Done()
		for msg := range sub.Channel() {
			var evt events.BusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn().Err(err).Str("channel", channel).Msg("malformed bus envelope dropped")
				continue
			}
			if err := handler(b.ctx, evt); err != nil {
				b.logger.Warn().Err(err).Str("channel", channel).Msg("subscriber failed, event dropped for that subscriber")
			}
		}
	}()
}

func (b *Redis) Close() error {
	b.cancel()

	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			b.logger.Warn().Err(err).Msg("error closing bus subscription")
		}
	}
	b.started.Wait()
	return nil
}
