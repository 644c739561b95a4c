package pool

import (
	"context"
	"sort"
	"sync"

	"arena-backend/internal/domain"
)

// Memory keeps per-ladder ticket lists sorted by rank points descending.
// The mutex is held across read-and-remove, so a claim can never hand the
// same ticket to two ticks.
type Memory struct {
	mu      sync.Mutex
	tickets map[domain.Ladder][]domain.QueueTicket
}

func NewMemory() *Memory {
	return &Memory{tickets: make(map[domain.Ladder][]domain.QueueTicket)}
}

func (p *Memory) Add(_ context.Context, ticket domain.QueueTicket) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	waiting := append(p.tickets[ticket.Ladder], ticket)
	sort.SliceStable(waiting, func(i, j int) bool {
		return waiting[i].RankPoints > waiting[j].RankPoints
	})
	p.tickets[ticket.Ladder] = waiting
	return nil
}

func (p *Memory) Claim(_ context.Context, ladder domain.Ladder, n int) ([]domain.QueueTicket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	waiting := p.tickets[ladder]
	if len(waiting) < n {
		return nil, nil
	}

	claimed := make([]domain.QueueTicket, n)
	copy(claimed, waiting[:n])
	p.tickets[ladder] = waiting[n:]
	return claimed, nil
}

func (p *Memory) Remove(_ context.Context, ladder domain.Ladder, ticketID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	waiting := p.tickets[ladder]
	for i, t := range waiting {
		if t.ID == ticketID {
			p.tickets[ladder] = append(waiting[:i], waiting[i+1:]...)
			return nil
		}
	}
	return nil
}

func (p *Memory) RemoveUser(_ context.Context, ladder domain.Ladder, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	waiting := p.tickets[ladder]
	for i, t := range waiting {
		if t.UserID == userID {
			p.tickets[ladder] = append(waiting[:i], waiting[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (p *Memory) Len(_ context.Context, ladder domain.Ladder) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tickets[ladder]), nil
}
