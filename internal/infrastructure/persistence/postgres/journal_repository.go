package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

const transactionColumns = `
	id, order_id, kind, host_log_key, auth_code, amount, currency,
	captured_amount, refunded_amount, status, last_code, created_at, updated_at
`

// JournalRepository is the transaction journal. order_id is unique, so a
// reused order id fails on insert.
type JournalRepository struct {
	db Executor
}

func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db.Pool}
}

func (r *JournalRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	m := toTransactionModel(tx)
	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.OrderID,
		m.Kind,
		m.HostLogKey,
		m.AuthCode,
		m.Amount,
		m.Currency,
		m.CapturedAmount,
		m.RefundedAmount,
		m.Status,
		m.LastCode,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("order %s: %w", tx.OrderID, domain.ErrDuplicateOrderID)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *JournalRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET host_log_key = $1, auth_code = $2,
			captured_amount = $3, refunded_amount = $4,
			status = $5, last_code = $6, updated_at = $7
		WHERE id = $8
	`

	m := toTransactionModel(tx)
	tag, err := r.db.Exec(ctx, query,
		m.HostLogKey,
		m.AuthCode,
		m.CapturedAmount,
		m.RefundedAmount,
		m.Status,
		m.LastCode,
		m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewTransactionNotFoundError(tx.ID)
	}
	return nil
}

// UpdateFrom is Update guarded by the stored status, so two requests that read
// the same row cannot both move it on.
func (r *JournalRepository) UpdateFrom(ctx context.Context, tx *domain.Transaction, from domain.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET host_log_key = $1, auth_code = $2,
			captured_amount = $3, refunded_amount = $4,
			status = $5, last_code = $6, updated_at = $7
		WHERE id = $8 AND status = $9
	`

	m := toTransactionModel(tx)
	tag, err := r.db.Exec(ctx, query,
		m.HostLogKey,
		m.AuthCode,
		m.CapturedAmount,
		m.RefundedAmount,
		m.Status,
		m.LastCode,
		m.UpdatedAt,
		m.ID,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewInvalidTransitionError(string(from), string(tx.Status))
	}
	return nil
}

func (r *JournalRepository) FindByHostLogKey(ctx context.Context, hostLogKey domain.HostLogKey) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE host_log_key = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, string(hostLogKey)), string(hostLogKey))
}

func (r *JournalRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE order_id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, orderID), orderID)
}

// FindPending returns PENDING entries created before olderThan, oldest first.
func (r *JournalRepository) FindPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, string(domain.TxStatusPending), olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending transactions: %w", err)
	}
	defer rows.Close()

	var pending []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows, "")
		if err != nil {
			return nil, err
		}
		pending = append(pending, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending transactions: %w", err)
	}
	return pending, nil
}

func scanTransaction(row pgx.Row, key string) (*domain.Transaction, error) {
	var m TransactionModel
	err := row.Scan(
		&m.ID, &m.OrderID, &m.Kind, &m.HostLogKey, &m.AuthCode, &m.Amount, &m.Currency,
		&m.CapturedAmount, &m.RefundedAmount, &m.Status, &m.LastCode, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewTransactionNotFoundError(key)
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return m.toDomain(), nil
}
