package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-backend/internal/database"
	"arena-backend/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func TestMatchRosterRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMatchRepository(newTestDB(t), zerolog.Nop())

	match := &domain.Match{
		ID:         "m1",
		Ladder:     domain.Ladder5v5,
		TeamA:      []string{"s1", "s2", "s3", "s4", "s5"},
		TeamB:      []string{"s6", "s7", "s8", "s9", "s10"},
		MatchStart: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, match))

	stored, err := repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MatchActive, stored.Status)
	assert.Equal(t, match.TeamA, stored.TeamA)
	assert.Equal(t, match.TeamB, stored.TeamB)
	assert.Nil(t, stored.MatchEnd)
}

func TestMatchGetUnknown(t *testing.T) {
	repo := NewMatchRepository(newTestDB(t), zerolog.Nop())

	_, err := repo.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestAttachServerTransitionsOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMatchRepository(newTestDB(t), zerolog.Nop())

	require.NoError(t, repo.Create(ctx, &domain.Match{
		ID: "m1", Ladder: domain.Ladder1v1,
		TeamA: []string{"a"}, TeamB: []string{"b"}, MatchStart: time.Now(),
	}))

	require.NoError(t, repo.AttachServer(ctx, "m1", "inst-1", "203.0.113.5"))

	stored, err := repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MatchActiveWithServer, stored.Status)
	assert.Equal(t, "inst-1", stored.ServerInstanceID)

	// Only an active match can receive a server.
	err = repo.AttachServer(ctx, "m1", "inst-2", "203.0.113.6")
	require.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestCompleteIsTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewMatchRepository(newTestDB(t), zerolog.Nop())

	require.NoError(t, repo.Create(ctx, &domain.Match{
		ID: "m1", Ladder: domain.Ladder1v1,
		TeamA: []string{"a"}, TeamB: []string{"b"}, MatchStart: time.Now(),
	}))

	require.NoError(t, repo.Complete(ctx, "m1", "2", time.Now()))

	err := repo.Complete(ctx, "m1", "1", time.Now())
	require.ErrorIs(t, err, domain.ErrMatchAlreadyEnded)

	stored, err := repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "2", stored.WinnerTeam)
}

func TestReportBatchWritesStatsAndCompletes(t *testing.T) {
	ctx := context.Background()
	repo := NewMatchRepository(newTestDB(t), zerolog.Nop())

	require.NoError(t, repo.Create(ctx, &domain.Match{
		ID: "m1", Ladder: domain.Ladder1v1,
		TeamA: []string{"a"}, TeamB: []string{"b"}, MatchStart: time.Now(),
	}))

	stats := []domain.PlayerMatchStat{
		{MatchID: "m1", SteamID: "a", Kills: 16, Result: domain.ResultWin},
		{MatchID: "m1", SteamID: "b", Kills: 11, Result: domain.ResultLoss},
	}
	require.NoError(t, repo.ReportBatch(ctx, "m1", stats, time.Now()))

	stored, err := repo.StatsByMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	match, err := repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MatchCompleted, match.Status)
}
