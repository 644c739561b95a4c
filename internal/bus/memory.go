package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arena-backend/internal/events"
)

// Memory fans events out synchronously within the publish call stack. Only
// usable when a single process runs all components.
type Memory struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

func NewMemory(logger zerolog.Logger) *Memory {
	return &Memory{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (b *Memory) Publish(ctx context.Context, channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", channel, err)
	}

	evt := events.BusEvent{
		Type:      channel,
		Payload:   raw,
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	handlers := b.handlers[channel]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, evt); err != nil {
			b.logger.Warn().Err(err).Str("channel", channel).Msg("subscriber failed, event dropped for that subscriber")
		}
	}
	return nil
}

func (b *Memory) Subscribe(channel string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = append(b.handlers[channel], handler)
}
