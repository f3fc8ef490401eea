package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wavetours/booking-engine/internal/domain"
)

// PostgresCancellationRepository implements CancellationRepository using PostgreSQL.
type PostgresCancellationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCancellationRepository creates a new PostgresCancellationRepository.
func NewPostgresCancellationRepository(pool *pgxpool.Pool) *PostgresCancellationRepository {
	return &PostgresCancellationRepository{pool: pool}
}

// Create inserts a cancellation record.
func (r *PostgresCancellationRepository) Create(ctx context.Context, rec *domain.CancellationRecord) error {
	query := `
		INSERT INTO cancellation_records (
			id, booking_id, reason, actor, refund_amount,
			refund_status, refund_txn_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.BookingID, rec.Reason, rec.Actor, int64(rec.RefundAmount),
		string(rec.RefundStatus), nullable(rec.RefundTxnID), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create cancellation record: %w", err)
	}
	return nil
}

// Update persists the refund outcome.
func (r *PostgresCancellationRepository) Update(ctx context.Context, rec *domain.CancellationRecord) error {
	query := `
		UPDATE cancellation_records
		SET refund_status = $2, refund_txn_id = $3, updated_at = $4
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		rec.ID, string(rec.RefundStatus), nullable(rec.RefundTxnID), rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update cancellation record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// GetByBookingID retrieves the cancellation record for a booking.
func (r *PostgresCancellationRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.CancellationRecord, error) {
	query := `
		SELECT id, booking_id, reason, actor, refund_amount,
		       refund_status, refund_txn_id, created_at, updated_at
		FROM cancellation_records
		WHERE booking_id = $1
	`
	rec := &domain.CancellationRecord{}
	var (
		refundAmount int64
		refundStatus string
		refundTxnID  *string
	)
	err := r.pool.QueryRow(ctx, query, bookingID).Scan(
		&rec.ID, &rec.BookingID, &rec.Reason, &rec.Actor, &refundAmount,
		&refundStatus, &refundTxnID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to scan cancellation record: %w", err)
	}
	rec.RefundAmount = toAmount(refundAmount)
	rec.RefundStatus = domain.RefundStatus(refundStatus)
	if refundTxnID != nil {
		rec.RefundTxnID = *refundTxnID
	}
	return rec, nil
}

var _ CancellationRepository = (*PostgresCancellationRepository)(nil)
