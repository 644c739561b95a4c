package pool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"arena-backend/internal/domain"
)

const keyPrefix = "mm:queue:"

// SortedSet backs the pool with one redis sorted set per ladder, scored by
// rank points. Claiming is a single ZPOPMAX, so two scheduler ticks on
// different server instances can never consume the same ticket.
type SortedSet struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewSortedSet(rdb *redis.Client, logger zerolog.Logger) *SortedSet {
	return &SortedSet{rdb: rdb, logger: logger}
}

func ladderKey(ladder domain.Ladder) string {
	return keyPrefix + string(ladder)
}

func (p *SortedSet) Add(ctx context.Context, ticket domain.QueueTicket) error {
	member, err := json.Marshal(&ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket %s: %w", ticket.ID, err)
	}

	err = p.rdb.ZAdd(ctx, ladderKey(ticket.Ladder), redis.Z{
		Score:  float64(ticket.RankPoints),
		Member: string(member),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add ticket %s to pool: %w", ticket.ID, err)
	}
	return nil
}

func (p *SortedSet) Claim(ctx context.Context, ladder domain.Ladder, n int) ([]domain.QueueTicket, error) {
	key := ladderKey(ladder)

	popped, err := p.rdb.ZPopMax(ctx, key, int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to pop tickets for %s: %w", ladder, err)
	}

	if len(popped) < n {
		// Underfull pool: put the claim back untouched.
		if len(popped) > 0 {
			if err := p.rdb.ZAdd(ctx, key, popped...).Err(); err != nil {
				return nil, fmt.Errorf("failed to return underfull claim for %s: %w", ladder, err)
			}
		}
		return nil, nil
	}

	claimed := make([]domain.QueueTicket, 0, n)
	for _, z := range popped {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		var ticket domain.QueueTicket
		if err := json.Unmarshal([]byte(member), &ticket); err != nil {
			p.logger.Warn().Err(err).Str("ladder", string(ladder)).Msg("dropping unreadable pool member")
			continue
		}
		claimed = append(claimed, ticket)
	}
	if len(claimed) < n {
		return nil, fmt.Errorf("claim for %s lost %d unreadable tickets", ladder, n-len(claimed))
	}
	return claimed, nil
}

func (p *SortedSet) Remove(ctx context.Context, ladder domain.Ladder, ticketID string) error {
	member, _, err := p.find(ctx, ladder, func(t domain.QueueTicket) bool { return t.ID == ticketID })
	if err != nil || member == "" {
		return err
	}
	if err := p.rdb.ZRem(ctx, ladderKey(ladder), member).Err(); err != nil {
		return fmt.Errorf("failed to remove ticket %s: %w", ticketID, err)
	}
	return nil
}

func (p *SortedSet) RemoveUser(ctx context.Context, ladder domain.Ladder, userID string) (bool, error) {
	member, _, err := p.find(ctx, ladder, func(t domain.QueueTicket) bool { return t.UserID == userID })
	if err != nil || member == "" {
		return false, err
	}
	removed, err := p.rdb.ZRem(ctx, ladderKey(ladder), member).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove ticket for user %s: %w", userID, err)
	}
	return removed > 0, nil
}

func (p *SortedSet) Len(ctx context.Context, ladder domain.Ladder) (int, error) {
	count, err := p.rdb.ZCard(ctx, ladderKey(ladder)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count pool for %s: %w", ladder, err)
	}
	return int(count), nil
}

func (p *SortedSet) find(ctx context.Context, ladder domain.Ladder, match func(domain.QueueTicket) bool) (string, domain.QueueTicket, error) {
	members, err := p.rdb.ZRange(ctx, ladderKey(ladder), 0, -1).Result()
	if err != nil {
		return "", domain.QueueTicket{}, fmt.Errorf("failed to scan pool for %s: %w", ladder, err)
	}
	for _, member := range members {
		var ticket domain.QueueTicket
		if err := json.Unmarshal([]byte(member), &ticket); err != nil {
			continue
		}
		if match(ticket) {
			return member, ticket, nil
		}
	}
	return "", domain.QueueTicket{}, nil
}
