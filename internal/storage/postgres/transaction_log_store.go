package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/storage"
)

// TransactionLogStore implements storage.TransactionLogStore using
// PostgreSQL.
type TransactionLogStore struct {
	pool *Pool
}

// NewTransactionLogStore creates a new TransactionLogStore.
func NewTransactionLogStore(pool *Pool) *TransactionLogStore {
	return &TransactionLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionLogStore = (*TransactionLogStore)(nil)

// Insert appends a log record. Returns ErrDuplicateKey if the id exists.
func (s *TransactionLogStore) Insert(ctx context.Context, l *domain.TransactionLog) error {
	query := `
		INSERT INTO transaction_logs (
			id, user_id, tracked_wallet_id, signature, transaction_type,
			token_address, amount, price_sol, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		l.ID,
		l.UserID,
		l.TrackedWalletID,
		l.Signature,
		l.TransactionType,
		l.TokenAddress,
		l.Amount,
		l.PriceSOL,
		l.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction log: %w", err)
	}
	return nil
}

// ListByUser retrieves the most recent records for a user, newest first.
func (s *TransactionLogStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.TransactionLog, error) {
	query := txLogSelect + `
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transaction logs by user: %w", err)
	}
	defer rows.Close()
	return collectTxLogs(rows)
}

// ListByWallet retrieves all records for a tracked wallet, newest first.
func (s *TransactionLogStore) ListByWallet(ctx context.Context, trackedWalletID uuid.UUID) ([]*domain.TransactionLog, error) {
	query := txLogSelect + `
		WHERE tracked_wallet_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := s.pool.Query(ctx, query, trackedWalletID)
	if err != nil {
		return nil, fmt.Errorf("list transaction logs by wallet: %w", err)
	}
	defer rows.Close()
	return collectTxLogs(rows)
}

const txLogSelect = `
	SELECT id, user_id, tracked_wallet_id, signature, transaction_type,
	       token_address, amount, price_sol, timestamp
	FROM transaction_logs`

func collectTxLogs(rows pgx.Rows) ([]*domain.TransactionLog, error) {
	var out []*domain.TransactionLog
	for rows.Next() {
		var l domain.TransactionLog
		err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.TrackedWalletID,
			&l.Signature,
			&l.TransactionType,
			&l.TokenAddress,
			&l.Amount,
			&l.PriceSOL,
			&l.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction log: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
