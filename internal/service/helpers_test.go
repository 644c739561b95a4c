package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"arena-backend/internal/config"
	"arena-backend/internal/database"
	"arena-backend/internal/domain"
	"arena-backend/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultLadder:         domain.Ladder5v5,
		QueueTick:             time.Second,
		ProviderRegion:        "europe-west1",
		ProviderZone:          "europe-west1-b",
		MachineTemplate:       "game-server-template",
		ProvisionPollInterval: 5 * time.Millisecond,
		ProvisionTimeout:      100 * time.Millisecond,
		ShutdownPollInterval:  5 * time.Millisecond,
		ShutdownTimeout:       50 * time.Millisecond,
	}
}

func seedUsers(t *testing.T, db *sql.DB, n int, rankPoints []int) *repository.UserRepository {
	t.Helper()

	userRepo := repository.NewUserRepository(db, zerolog.Nop())
	for i := 0; i < n; i++ {
		rank := 1000
		if i < len(rankPoints) {
			rank = rankPoints[i]
		}
		err := userRepo.Create(context.Background(), &domain.User{
			ID:         fmt.Sprintf("user-%d", i),
			SteamID:    fmt.Sprintf("steam-%d", i),
			RankPoints: rank,
		})
		require.NoError(t, err)
	}
	return userRepo
}
