package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

// SessionRepository persists 3-D Secure sessions so a callback can be served
// by any instance and survives restarts. Expiry is left to DeleteAbandoned.
type SessionRepository struct {
	db Executor
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db.Pool}
}

// Save inserts the session or overwrites the stored copy.
func (r *SessionRepository) Save(ctx context.Context, session *domain.ThreeDSecureSession) error {
	query := `
		INSERT INTO threeds_sessions (
			order_ref, xid, amount, currency, installment, tran_type, phase,
			md_status, bank_data, host_log_key, auth_code, failure_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (order_ref) DO UPDATE SET
			phase = EXCLUDED.phase,
			md_status = EXCLUDED.md_status,
			bank_data = EXCLUDED.bank_data,
			host_log_key = EXCLUDED.host_log_key,
			auth_code = EXCLUDED.auth_code,
			failure_reason = EXCLUDED.failure_reason,
			updated_at = EXCLUDED.updated_at
	`

	m := toSessionModel(session)
	_, err := r.db.Exec(ctx, query,
		m.OrderRef,
		m.XID,
		m.Amount,
		m.Currency,
		m.Installment,
		m.TranType,
		m.Phase,
		m.MdStatus,
		m.BankData,
		m.HostLogKey,
		m.AuthCode,
		m.FailureReason,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.OrderRef, err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, orderRef string) (*domain.ThreeDSecureSession, error) {
	query := `
		SELECT order_ref, xid, amount, currency, installment, tran_type, phase,
		       md_status, bank_data, host_log_key, auth_code, failure_reason,
		       created_at, updated_at
		FROM threeds_sessions WHERE order_ref = $1
	`

	var m SessionModel
	err := r.db.QueryRow(ctx, query, orderRef).Scan(
		&m.OrderRef, &m.XID, &m.Amount, &m.Currency, &m.Installment, &m.TranType, &m.Phase,
		&m.MdStatus, &m.BankData, &m.HostLogKey, &m.AuthCode, &m.FailureReason,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewSessionNotFoundError(orderRef)
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return m.toDomain(), nil
}

func (r *SessionRepository) Delete(ctx context.Context, orderRef string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM threeds_sessions WHERE order_ref = $1`, orderRef); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", orderRef, err)
	}
	return nil
}

// DeleteAbandoned removes sessions not touched since olderThan.
func (r *SessionRepository) DeleteAbandoned(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM threeds_sessions WHERE updated_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete abandoned sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
