package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arena-backend/internal/domain"
)

type UserRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewUserRepository(sqlDB *sql.DB, logger zerolog.Logger) *UserRepository {
	return &UserRepository{db: sqlDB, logger: logger}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, steam_id, rank_points, coins, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.SteamID, user.RankPoints, user.Coins.String(), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, steam_id, rank_points, coins, created_at, updated_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var coins string
	err := row.Scan(&user.ID, &user.SteamID, &user.RankPoints, &coins, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user.Coins, err = decimal.NewFromString(coins)
	if err != nil {
		return nil, fmt.Errorf("unreadable coin balance for user %s: %w", user.ID, err)
	}
	return &user, nil
}

// ResolveTx finds a user by their account id or steam id, whichever the
// caller was handed. Game servers report steam ids; request paths carry
// account ids.
func (r *UserRepository) ResolveTx(ctx context.Context, tx *sql.Tx, ref string) (*domain.User, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, steam_id, rank_points, coins, created_at, updated_at
		 FROM users WHERE id = ? OR steam_id = ?`, ref, ref)

	var user domain.User
	var coins string
	err := row.Scan(&user.ID, &user.SteamID, &user.RankPoints, &coins, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user.Coins, err = decimal.NewFromString(coins)
	if err != nil {
		return nil, fmt.Errorf("unreadable coin balance for user %s: %w", user.ID, err)
	}
	return &user, nil
}

// AddCoinsTx mirrors a wallet credit onto the user's denormalized coin
// balance inside the caller's settlement transaction.
func (r *UserRepository) AddCoinsTx(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal) error {
	var coins string
	err := tx.QueryRowContext(ctx, `SELECT coins FROM users WHERE id = ?`, userID).Scan(&coins)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read coins for user %s: %w", userID, err)
	}

	balance, err := decimal.NewFromString(coins)
	if err != nil {
		return fmt.Errorf("unreadable coin balance for user %s: %w", userID, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET coins = ?, updated_at = ? WHERE id = ?`,
		balance.Add(amount).String(), time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update coins for user %s: %w", userID, err)
	}
	return nil
}
