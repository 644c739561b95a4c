// Package bus carries all cross-component coordination. Two variants exist:
// an in-process synchronous fan-out for single-instance deployments and a
// redis pub/sub implementation for multi-instance ones. Both share the same
// contract: publishing never fails because of a subscriber. A handler error
// is logged by the bus and discarded.
package bus

import (
	"context"

	"arena-backend/internal/events"
)

type Handler func(ctx context.Context, evt events.BusEvent) error

type Bus interface {
	// Publish marshals payload into a BusEvent envelope and delivers it to
	// zero or more subscribers of channel.
	Publish(ctx context.Context, channel string, payload any) error

	// Subscribe registers handler for channel. Handlers must tolerate
	// at-least-once delivery when the distributed variant is in use.
	Subscribe(channel string, handler Handler)
}
