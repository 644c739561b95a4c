package service

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"arena-backend/internal/bus"
	"arena-backend/internal/config"
	"arena-backend/internal/constants"
	"arena-backend/internal/domain"
	"arena-backend/internal/events"
	"arena-backend/internal/pool"
	"arena-backend/internal/repository"
)

// QueueCoordinator owns the waiting-ticket pool and the periodic match
// forming tick. Construct one per process; Start/Stop bound its lifecycle.
type QueueCoordinator struct {
	pool      pool.TicketPool
	userRepo  *repository.UserRepository
	matchRepo *repository.MatchRepository
	eventBus  bus.Bus
	logger    zerolog.Logger

	defaultLadder domain.Ladder
	tick          time.Duration
	cancel        context.CancelFunc
	done          chan struct{}
}

func NewQueueCoordinator(
	ticketPool pool.TicketPool,
	userRepo *repository.UserRepository,
	matchRepo *repository.MatchRepository,
	eventBus bus.Bus,
	cfg *config.Config,
	logger zerolog.Logger,
) *QueueCoordinator {
	return &QueueCoordinator{
		pool:          ticketPool,
		userRepo:      userRepo,
		matchRepo:     matchRepo,
		eventBus:      eventBus,
		logger:        logger,
		defaultLadder: cfg.DefaultLadder,
		tick:          cfg.QueueTick,
	}
}

// Enqueue creates a waiting ticket for the user, scored by their current
// rank points.
func (c *QueueCoordinator) Enqueue(ctx context.Context, userID string, ladder domain.Ladder) (*domain.QueueTicket, error) {
	if ladder == "" {
		ladder = c.defaultLadder
	}
	if !ladder.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidLadder, ladder)
	}

	user, err := c.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}

	ticketID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ticket id: %w", err)
	}

	ticket := domain.QueueTicket{
		ID:         ticketID,
		UserID:     user.ID,
		SteamID:    user.SteamID,
		Ladder:     ladder,
		RankPoints: user.RankPoints,
		CreatedAt:  time.Now(),
	}
	if err := c.pool.Add(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to enqueue ticket %s: %w", ticketID, err)
	}

	c.logger.Info().
		Str("ticket_id", ticket.ID).
		Str("user_id", user.ID).
		Str("ladder", string(ladder)).
		Int("rank_points", ticket.RankPoints).
		Msg("user joined queue")

	if err := c.eventBus.Publish(ctx, events.ChannelQueueJoined, events.QueueJoined{
		TicketID: ticket.ID,
		UserID:   user.ID,
		Ladder:   ladder,
	}); err != nil {
		c.logger.Warn().Err(err).Str("ticket_id", ticket.ID).Msg("failed to publish queue-joined event")
	}

	return &ticket, nil
}

// Leave removes the user's waiting ticket. Leaving without a ticket is a
// no-op.
func (c *QueueCoordinator) Leave(ctx context.Context, userID string, ladder domain.Ladder) error {
	if ladder == "" {
		ladder = c.defaultLadder
	}
	if !ladder.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidLadder, ladder)
	}

	removed, err := c.pool.RemoveUser(ctx, ladder, userID)
	if err != nil {
		return fmt.Errorf("failed to leave queue: %w", err)
	}
	if removed {
		c.logger.Info().Str("user_id", userID).Str("ladder", string(ladder)).Msg("user left queue")
	}
	return nil
}

// ProcessQueue runs one match-forming attempt for a ladder. Tickets are
// claimed atomically before the match row is written, then split into two
// contiguous halves of the rank-points ordering (top half = team A, a total
// rank-points balance heuristic).
func (c *QueueCoordinator) ProcessQueue(ctx context.Context, ladder domain.Ladder) error {
	teamSize := ladder.TeamSize()
	needed := 2 * teamSize

	tickets, err := c.pool.Claim(ctx, ladder, needed)
	if err != nil {
		return fmt.Errorf("failed to claim tickets for %s: %w", ladder, err)
	}
	if tickets == nil {
		return nil
	}

	teamA := make([]string, 0, teamSize)
	teamB := make([]string, 0, teamSize)
	for i, ticket := range tickets {
		if i < teamSize {
			teamA = append(teamA, ticket.SteamID)
		} else {
			teamB = append(teamB, ticket.SteamID)
		}
	}

	matchID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate match id: %w", err)
	}

	match := &domain.Match{
		ID:         matchID,
		Ladder:     ladder,
		TeamA:      teamA,
		TeamB:      teamB,
		Status:     domain.MatchActive,
		MatchStart: time.Now(),
	}
	if err := c.matchRepo.Create(ctx, match); err != nil {
		return fmt.Errorf("failed to create match for %s: %w", ladder, err)
	}

	c.logger.Info().
		Str("match_id", matchID).
		Str("ladder", string(ladder)).
		Strs("team_a", teamA).
		Strs("team_b", teamB).
		Msg("match formed")

	if err := c.eventBus.Publish(ctx, events.ChannelSpawnRequested, events.SpawnRequested{
		MatchID: matchID,
		Ladder:  ladder,
		TeamA:   teamA,
		TeamB:   teamB,
	}); err != nil {
		return fmt.Errorf("failed to publish spawn request for match %s: %w", matchID, err)
	}
	return nil
}

// ReportMatch is the batch result path: all stats arrive at once, the match
// completes, and settlement is triggered through the bus.
func (c *QueueCoordinator) ReportMatch(ctx context.Context, matchID string, stats []domain.PlayerMatchStat) error {
	if matchID == "" || len(stats) == 0 {
		return fmt.Errorf("match report requires a match id and at least one stat line")
	}

	if _, err := c.matchRepo.Get(ctx, matchID); err != nil {
		return err
	}

	if err := c.matchRepo.ReportBatch(ctx, matchID, stats, time.Now()); err != nil {
		return err
	}

	results := make([]events.PlayerResult, len(stats))
	for i, stat := range stats {
		results[i] = events.PlayerResult{
			UserID:      stat.SteamID,
			Kills:       stat.Kills,
			Deaths:      stat.Deaths,
			Headshots:   stat.Headshots,
			Clutches:    stat.Clutches,
			MVPs:        stat.MVPs,
			RatingDelta: stat.RatingDelta,
			Result:      stat.Result,
		}
	}

	c.logger.Info().Str("match_id", matchID).Int("players", len(results)).Msg("match reported")

	if err := c.eventBus.Publish(ctx, events.ChannelMatchCompleted, events.MatchCompleted{
		MatchID: matchID,
		Stats:   results,
	}); err != nil {
		return fmt.Errorf("failed to publish completion for match %s: %w", matchID, err)
	}
	return nil
}

// Start launches the periodic match-forming tick, one attempt per ladder
// per tick.
func (c *QueueCoordinator) Start() {
	if c.tick <= 0 {
		c.tick = constants.QueueTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.tickOnce(ctx)
			}
		}
	}()

	c.logger.Info().Dur("interval", c.tick).Msg("queue scheduler started")
}

func (c *QueueCoordinator) tickOnce(ctx context.Context) {
	g, gCtx := errgroup.WithContext(ctx)
	for _, ladder := range domain.Ladders() {
		ladder := ladder
		g.Go(func() error {
			if err := c.ProcessQueue(gCtx, ladder); err != nil {
				c.logger.Error().Err(err).Str("ladder", string(ladder)).Msg("queue tick failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *QueueCoordinator) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.logger.Info().Msg("queue scheduler stopped")
}
