package store

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
)

const transactionColumns = `id, user_id, total_amount, status, items, shipping_address, bank_info,
	notes, idempotency_key, created_at, updated_at`

// GetTransaction retrieves a transaction by ID
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.GetContext(ctx, &t, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &t, nil
}

// GetTransactionByIdempotencyKey returns the user's transaction created with key
func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, userID, key string) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.GetContext(ctx, &t,
		"SELECT "+transactionColumns+" FROM transactions WHERE idempotency_key = $1 AND user_id = $2", key, userID)
	if err != nil {
		return nil, notFound(err, "transaction with idempotency key", key)
	}
	return &t, nil
}

// ListTransactions returns every transaction, newest first
func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := s.db.SelectContext(ctx, &txs,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY created_at DESC, id DESC")
	return txs, err
}

// ListTransactionsByUser returns the user's transactions, newest first
func (s *Store) ListTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := s.db.SelectContext(ctx, &txs,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	return txs, err
}

// UpdateTransactionStatus moves a transaction from one status to another.
// Returns ErrConflict when the stored status is no longer from.
func (s *Store) UpdateTransactionStatus(ctx context.Context, id string, from, to models.TransactionStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetTransaction(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("transaction %s is no longer %s: %w", id, from, ErrConflict)
	}
	return nil
}
