package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wavetours/booking-engine/internal/domain"
)

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL.
type PostgresPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentRepository creates a new PostgresPaymentRepository.
func NewPostgresPaymentRepository(pool *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

// Create inserts a transaction row.
func (r *PostgresPaymentRepository) Create(ctx context.Context, t *domain.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (
			id, booking_id, kind, provider, gateway_txn_id, amount, currency,
			status, idempotency_key, failure_code, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		t.ID, t.BookingID, string(t.Kind), t.Provider, nullable(t.GatewayTxnID),
		int64(t.Amount), t.Currency, string(t.Status), t.IdempotencyKey,
		nullable(t.FailureCode), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return nil
}

// Update persists the outcome of an attempt. Rows only move forward from
// pending; amount and identity columns never change.
func (r *PostgresPaymentRepository) Update(ctx context.Context, t *domain.PaymentTransaction) error {
	query := `
		UPDATE payment_transactions
		SET status = $2, gateway_txn_id = $3, failure_code = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		t.ID, string(t.Status), nullable(t.GatewayTxnID), nullable(t.FailureCode), t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// GetByID retrieves a transaction by id.
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentTransaction, error) {
	query := paymentSelect + ` WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey retrieves the attempt recorded under a key.
func (r *PostgresPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentTransaction, error) {
	query := paymentSelect + ` WHERE idempotency_key = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, key))
}

// GetByGatewayTxnID resolves a transaction by the provider-side reference.
func (r *PostgresPaymentRepository) GetByGatewayTxnID(ctx context.Context, gatewayTxnID string) (*domain.PaymentTransaction, error) {
	query := paymentSelect + ` WHERE gateway_txn_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query, gatewayTxnID))
}

// GetSucceededCharge returns the successful charge row for a booking.
func (r *PostgresPaymentRepository) GetSucceededCharge(ctx context.Context, bookingID string) (*domain.PaymentTransaction, error) {
	query := paymentSelect + `
		WHERE booking_id = $1 AND kind = 'charge' AND status = 'succeeded'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, bookingID))
}

// CountAttempts counts prior attempts of a kind for a booking.
func (r *PostgresPaymentRepository) CountAttempts(ctx context.Context, bookingID string, kind domain.TransactionKind) (int, error) {
	query := `SELECT COUNT(*) FROM payment_transactions WHERE booking_id = $1 AND kind = $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, bookingID, string(kind)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count payment attempts: %w", err)
	}
	return count, nil
}

const paymentSelect = `
	SELECT id, booking_id, kind, provider, gateway_txn_id, amount, currency,
	       status, idempotency_key, failure_code, created_at, updated_at
	FROM payment_transactions
`

func (r *PostgresPaymentRepository) scanOne(row pgx.Row) (*domain.PaymentTransaction, error) {
	t := &domain.PaymentTransaction{}
	var (
		kind         string
		status       string
		amount       int64
		gatewayTxnID *string
		failureCode  *string
	)
	err := row.Scan(
		&t.ID, &t.BookingID, &kind, &t.Provider, &gatewayTxnID, &amount, &t.Currency,
		&status, &t.IdempotencyKey, &failureCode, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment transaction: %w", err)
	}
	t.Kind = domain.TransactionKind(kind)
	t.Status = domain.TransactionStatus(status)
	t.Amount = toAmount(amount)
	if gatewayTxnID != nil {
		t.GatewayTxnID = *gatewayTxnID
	}
	if failureCode != nil {
		t.FailureCode = *failureCode
	}
	return t, nil
}

var _ PaymentRepository = (*PostgresPaymentRepository)(nil)
