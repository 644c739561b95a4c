package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-backend/internal/bus"
	"arena-backend/internal/domain"
	"arena-backend/internal/events"
	"arena-backend/internal/repository"
)

type settlementFixture struct {
	settlement *RewardSettlement
	walletRepo *repository.WalletRepository
	userRepo   *repository.UserRepository
	eventBus   *bus.Memory
	rewards    *[]events.WalletReward
}

func newSettlementFixture(t *testing.T, users int) settlementFixture {
	t.Helper()

	db := newTestDB(t)
	userRepo := seedUsers(t, db, users, nil)
	walletRepo := repository.NewWalletRepository(db, zerolog.Nop())
	eventBus := bus.NewMemory(zerolog.Nop())

	settlement := NewRewardSettlement(db, walletRepo, userRepo, eventBus, zerolog.Nop())
	settlement.Register()

	rewards := &[]events.WalletReward{}
	eventBus.Subscribe(events.ChannelWalletReward, func(_ context.Context, evt events.BusEvent) error {
		var payload events.WalletReward
		require.NoError(t, json.Unmarshal(evt.Payload, &payload))
		*rewards = append(*rewards, payload)
		return nil
	})

	return settlementFixture{
		settlement: settlement,
		walletRepo: walletRepo,
		userRepo:   userRepo,
		eventBus:   eventBus,
		rewards:    rewards,
	}
}

func coins(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSettleCreditsBySchedule(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t, 3)

	payload := events.MatchCompleted{
		MatchID: "m1",
		Stats: []events.PlayerResult{
			{UserID: "user-0", Result: domain.ResultWin},
			{UserID: "user-1", Result: domain.ResultLoss},
			{UserID: "user-2", Result: domain.ResultDraw},
		},
	}
	require.NoError(t, f.settlement.Settle(ctx, payload))

	expected := map[string]decimal.Decimal{
		"user-0": coins("0.10"),
		"user-1": coins("0.01"),
		"user-2": coins("0.05"),
	}
	for userID, amount := range expected {
		wallet, err := f.walletRepo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(amount), "wallet %s = %s, want %s", userID, wallet.Balance, amount)

		entries, err := f.walletRepo.TransactionsByWallet(ctx, wallet.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.TransactionEarn, entries[0].Type)
		assert.Contains(t, entries[0].Reason, "m1")
		assert.True(t, entries[0].Amount.Equal(amount))

		user, err := f.userRepo.Get(ctx, userID)
		require.NoError(t, err)
		assert.True(t, user.Coins.Equal(amount), "denormalized coins follow the wallet")
	}

	require.Len(t, *f.rewards, 1)
	assert.Equal(t, "m1", (*f.rewards)[0].MatchID)
}

func TestSettleResolvesSteamIDs(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t, 1)

	payload := events.MatchCompleted{
		MatchID: "m1",
		Stats:   []events.PlayerResult{{UserID: "steam-0", Result: domain.ResultWin}},
	}
	require.NoError(t, f.settlement.Settle(ctx, payload))

	wallet, err := f.walletRepo.GetByUserID(ctx, "user-0")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(coins("0.10")))
}

func TestSettleRepeatedMatchesAccumulate(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t, 1)

	for _, matchID := range []string{"m1", "m2"} {
		require.NoError(t, f.settlement.Settle(ctx, events.MatchCompleted{
			MatchID: matchID,
			Stats:   []events.PlayerResult{{UserID: "user-0", Result: domain.ResultWin}},
		}))
	}

	wallet, err := f.walletRepo.GetByUserID(ctx, "user-0")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(coins("0.20")))

	entries, err := f.walletRepo.TransactionsByWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one ledger entry per match")
}

// Settlement is all-or-nothing: if any player's credit fails, nobody in the
// match is credited.
func TestSettleRollsBackOnAnyFailure(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t, 1)

	payload := events.MatchCompleted{
		MatchID: "m1",
		Stats: []events.PlayerResult{
			{UserID: "user-0", Result: domain.ResultWin},
			{UserID: "nobody", Result: domain.ResultWin},
		},
	}
	err := f.settlement.Settle(ctx, payload)
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.walletRepo.GetByUserID(ctx, "user-0")
	require.Error(t, err, "player 1's credit must have been rolled back")

	user, err := f.userRepo.Get(ctx, "user-0")
	require.NoError(t, err)
	assert.True(t, user.Coins.IsZero())

	assert.Empty(t, *f.rewards, "no payout announcement for a failed settlement")
}

// Malformed completion events are dropped before a transaction opens, and
// the bus never sees a handler failure.
func TestMalformedCompletionDropped(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t, 1)

	for _, payload := range []any{
		events.MatchCompleted{MatchID: "", Stats: []events.PlayerResult{{UserID: "user-0"}}},
		events.MatchCompleted{MatchID: "m1"},
		events.MatchCompleted{MatchID: "m1", Stats: []events.PlayerResult{{UserID: ""}}},
		"not an object",
	} {
		require.NoError(t, f.eventBus.Publish(ctx, events.ChannelMatchCompleted, payload))
	}

	_, err := f.walletRepo.GetByUserID(ctx, "user-0")
	require.Error(t, err, "no wallet was created")
	assert.Empty(t, *f.rewards)
}

// End to end over the bus: a completion event settles and announces the
// payout.
func TestCompletionEventSettlesViaBus(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t, 2)

	require.NoError(t, f.eventBus.Publish(ctx, events.ChannelMatchCompleted, events.MatchCompleted{
		MatchID: "m9",
		Stats: []events.PlayerResult{
			{UserID: "user-0", Result: domain.ResultWin},
			{UserID: "user-1", Result: domain.ResultLoss},
		},
	}))

	total := decimal.Zero
	for _, userID := range []string{"user-0", "user-1"} {
		wallet, err := f.walletRepo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		total = total.Add(wallet.Balance)
	}
	assert.True(t, total.Equal(coins("0.11")), "0.10 + 0.01 exactly, no float drift")
	require.Len(t, *f.rewards, 1)
	assert.Equal(t, "m9", (*f.rewards)[0].MatchID)
}
