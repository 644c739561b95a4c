package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arena-backend/internal/domain"
)

type WalletRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewWalletRepository(sqlDB *sql.DB, logger zerolog.Logger) *WalletRepository {
	return &WalletRepository{db: sqlDB, logger: logger}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ?`, userID)
	return scanWallet(row.Scan)
}

func scanWallet(scan func(...any) error) (*domain.Wallet, error) {
	var wallet domain.Wallet
	var balance string
	err := scan(&wallet.ID, &wallet.UserID, &balance, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		return nil, err
	}

	wallet.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("unreadable balance for wallet %s: %w", wallet.ID, err)
	}
	return &wallet, nil
}

// GetOrCreateTx returns the user's wallet inside the caller's transaction,
// creating an empty one on first credit.
func (r *WalletRepository) GetOrCreateTx(ctx context.Context, tx *sql.Tx, userID string) (*domain.Wallet, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ?`, userID)

	wallet, err := scanWallet(row.Scan)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read wallet for user %s: %w", userID, err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet id: %w", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallets (id, user_id, balance, created_at, updated_at) VALUES (?, ?, '0', ?, ?)`,
		id, userID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet for user %s: %w", userID, err)
	}

	return &domain.Wallet{
		ID:        id,
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CreditTx increments the wallet balance and appends the matching ledger
// entry inside the caller's transaction.
func (r *WalletRepository) CreditTx(ctx context.Context, tx *sql.Tx, wallet *domain.Wallet, amount decimal.Decimal, txType, reason string) error {
	newBalance := wallet.Balance.Add(amount)
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = ?, updated_at = ? WHERE id = ?`,
		newBalance.String(), time.Now(), wallet.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit wallet %s: %w", wallet.ID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("wallet %s vanished during credit", wallet.ID)
	}

	entryID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate transaction id: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, wallet_id, amount, type, reason, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entryID, wallet.ID, amount.String(), txType, reason, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction for wallet %s: %w", wallet.ID, err)
	}

	wallet.Balance = newBalance
	return nil
}

func (r *WalletRepository) TransactionsByWallet(ctx context.Context, walletID string) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, wallet_id, amount, type, reason, created_at FROM transactions
		 WHERE wallet_id = ? ORDER BY created_at`, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions for wallet %s: %w", walletID, err)
	}
	defer rows.Close()

	var entries []domain.Transaction
	for rows.Next() {
		var entry domain.Transaction
		var amount string
		if err := rows.Scan(&entry.ID, &entry.WalletID, &amount, &entry.Type, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("unreadable amount on transaction %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
