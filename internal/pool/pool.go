// Package pool holds waiting queue tickets per ladder, ordered by rank
// points. The in-process variant serves a single server instance; the
// sorted-set variant shares the pool across instances through redis.
package pool

import (
	"context"

	"arena-backend/internal/domain"
)

type TicketPool interface {
	Add(ctx context.Context, ticket domain.QueueTicket) error

	// Claim atomically removes and returns the n highest-rank-points tickets
	// for ladder, ordered best first. If fewer than n are waiting it removes
	// nothing and returns nil.
	Claim(ctx context.Context, ladder domain.Ladder, n int) ([]domain.QueueTicket, error)

	// Remove drops a ticket by id. Removing an absent ticket is a no-op.
	Remove(ctx context.Context, ladder domain.Ladder, ticketID string) error

	// RemoveUser drops a user's waiting ticket, reporting whether one existed.
	RemoveUser(ctx context.Context, ladder domain.Ladder, userID string) (bool, error)

	Len(ctx context.Context, ladder domain.Ladder) (int, error)
}
