package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-backend/internal/events"
)

func TestMemoryFansOutToAllSubscribers(t *testing.T) {
	b := NewMemory(zerolog.Nop())

	var got []string
	for i := 0; i < 3; i++ {
		b.Subscribe("match.completed", func(_ context.Context, evt events.BusEvent) error {
			var payload map[string]string
			require.NoError(t, json.Unmarshal(evt.Payload, &payload))
			got = append(got, payload["match_id"])
			return nil
		})
	}

	err := b.Publish(context.Background(), "match.completed", map[string]string{"match_id": "m1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m1", "m1"}, got)
}

func TestMemorySwallowsSubscriberErrors(t *testing.T) {
	b := NewMemory(zerolog.Nop())

	calledAfterFailure := false
	b.Subscribe("server.spawned", func(context.Context, events.BusEvent) error {
		return errors.New("subscriber exploded")
	})
	b.Subscribe("server.spawned", func(context.Context, events.BusEvent) error {
		calledAfterFailure = true
		return nil
	})

	err := b.Publish(context.Background(), "server.spawned", map[string]string{"match_id": "m1"})
	require.NoError(t, err, "publisher must never see subscriber failures")
	assert.True(t, calledAfterFailure, "later subscribers still run")
}

func TestMemoryPublishWithoutSubscribers(t *testing.T) {
	b := NewMemory(zerolog.Nop())
	require.NoError(t, b.Publish(context.Background(), "wallet.reward", map[string]string{"match_id": "m1"}))
}

func TestMemoryEnvelopeCarriesChannelAndTimestamp(t *testing.T) {
	b := NewMemory(zerolog.Nop())

	var got events.BusEvent
	b.Subscribe("matchmaking.queue.joined", func(_ context.Context, evt events.BusEvent) error {
		got = evt
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "matchmaking.queue.joined", map[string]string{"ticket_id": "t1"}))
	assert.Equal(t, "matchmaking.queue.joined", got.Type)
	assert.False(t, got.Timestamp.IsZero())
}
