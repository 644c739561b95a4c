package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arena-backend/internal/bus"
	"arena-backend/internal/domain"
	"arena-backend/internal/events"
	"arena-backend/internal/repository"
)

// RewardSettlement credits coin rewards for completed matches. One database
// transaction spans the whole match: either every participant is credited or
// none is.
type RewardSettlement struct {
	db         *sql.DB
	walletRepo *repository.WalletRepository
	userRepo   *repository.UserRepository
	eventBus   bus.Bus
	logger     zerolog.Logger
}

func NewRewardSettlement(
	sqlDB *sql.DB,
	walletRepo *repository.WalletRepository,
	userRepo *repository.UserRepository,
	eventBus bus.Bus,
	logger zerolog.Logger,
) *RewardSettlement {
	return &RewardSettlement{
		db:         sqlDB,
		walletRepo: walletRepo,
		userRepo:   userRepo,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Register wires settlement onto the bus.
func (s *RewardSettlement) Register() {
	s.eventBus.Subscribe(events.ChannelMatchCompleted, s.onMatchCompleted)
}

func (s *RewardSettlement) onMatchCompleted(ctx context.Context, evt events.BusEvent) error {
	var payload events.MatchCompleted
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("malformed match.completed payload dropped, no settlement")
		return nil
	}
	if err := validateCompletion(payload); err != nil {
		s.logger.Warn().Err(err).Str("match_id", payload.MatchID).Msg("invalid match.completed payload dropped, no settlement")
		return nil
	}
	return s.Settle(ctx, payload)
}

func validateCompletion(payload events.MatchCompleted) error {
	if payload.MatchID == "" {
		return fmt.Errorf("missing match id")
	}
	if len(payload.Stats) == 0 {
		return fmt.Errorf("no player results")
	}
	for _, stat := range payload.Stats {
		if stat.UserID == "" {
			return fmt.Errorf("player result without user id")
		}
	}
	return nil
}

// Settle credits every participant of one completed match atomically and
// publishes wallet.reward on commit. A failed settlement leaves the match
// unsettled for operational remediation; there is no automatic retry.
func (s *RewardSettlement) Settle(ctx context.Context, payload events.MatchCompleted) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settlement transaction: %w", err)
	}
	defer tx.Rollback()

	total := decimal.Zero
	for _, stat := range payload.Stats {
		amount := domain.RewardFor(stat.Result)
		reason := fmt.Sprintf("match reward %s", payload.MatchID)

		user, err := s.userRepo.ResolveTx(ctx, tx, stat.UserID)
		if err != nil {
			return fmt.Errorf("settlement for match %s aborted: %w", payload.MatchID, err)
		}
		wallet, err := s.walletRepo.GetOrCreateTx(ctx, tx, user.ID)
		if err != nil {
			return fmt.Errorf("settlement for match %s aborted: %w", payload.MatchID, err)
		}
		if err := s.walletRepo.CreditTx(ctx, tx, wallet, amount, domain.TransactionEarn, reason); err != nil {
			return fmt.Errorf("settlement for match %s aborted: %w", payload.MatchID, err)
		}
		if err := s.userRepo.AddCoinsTx(ctx, tx, user.ID, amount); err != nil {
			return fmt.Errorf("settlement for match %s aborted: %w", payload.MatchID, err)
		}
		total = total.Add(amount)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement for match %s: %w", payload.MatchID, err)
	}

	s.logger.Info().
		Str("match_id", payload.MatchID).
		Int("players", len(payload.Stats)).
		Str("total_coins", total.String()).
		Msg("match rewards settled")

	if err := s.eventBus.Publish(ctx, events.ChannelWalletReward, events.WalletReward{
		MatchID: payload.MatchID,
	}); err != nil {
		s.logger.Warn().Err(err).Str("match_id", payload.MatchID).Msg("failed to publish wallet.reward")
	}
	return nil
}
